package routes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/services"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

// messageService is wired to the websocket hub so persisted messages are
// mirrored to connected clients.
var messageService = services.NewMessageService(services.Hub)

func handleMessageError(err error, ctx iris.Context) {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	switch {
	case errors.As(err, &validation):
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Missing or invalid fields: "+strings.Join(validation.Fields, ", ")+".", ctx)
	case errors.As(err, &notFound):
		utils.CreateNotFound(ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}

// CreateMessage sends a direct or broadcast message. Direct sends return
// the stored message; broadcast sends return how many recipients the
// message fanned out to.
func CreateMessage(ctx iris.Context) {
	var input services.CreateMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := messageService.Create(input)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	if result.Broadcast {
		ctx.JSON(iris.Map{
			"broadcast":      true,
			"recipientCount": result.RecipientCount,
		})
		return
	}

	go services.Notifications.SendMessageNotification(
		result.Message.Receiver.Model, result.Message.Receiver.ID,
		result.Message.ID, result.Message.Sender.Name, result.Message.Subject,
	)
	ctx.JSON(result.Message)
}

func GetInbox(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userID", 0)
	userModel := ctx.Params().Get("userModel")
	if userID == 0 || !models.IndividualModel(userModel) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "A valid user id and model are required.", ctx)
		return
	}

	messages, err := messageService.Inbox(userID, userModel)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(messages)
}

func GetSent(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userID", 0)
	userModel := ctx.Params().Get("userModel")
	if userID == 0 || !models.IndividualModel(userModel) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "A valid user id and model are required.", ctx)
		return
	}

	messages, err := messageService.Sent(userID, userModel)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(messages)
}

// GetConversation returns the two-way exchange between the caller and
// another participant, oldest first. Fetching marks the caller's unread
// half read.
func GetConversation(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userID", 0)
	userModel := ctx.Params().Get("userModel")
	otherID := ctx.Params().GetUintDefault("otherID", 0)
	if userID == 0 || otherID == 0 || !models.IndividualModel(userModel) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Valid participant ids and model are required.", ctx)
		return
	}

	messages, err := messageService.Conversation(userID, userModel, otherID)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(messages)
}

func GetUnreadCount(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userID", 0)
	userModel := ctx.Params().Get("userModel")
	if userID == 0 || !models.IndividualModel(userModel) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "A valid user id and model are required.", ctx)
		return
	}

	count, err := messageService.UnreadCount(userID, userModel)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"unreadCount": count})
}

func GetBroadcastInbox(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userID", 0)
	userModel := ctx.Params().Get("userModel")
	if userID == 0 || !models.IndividualModel(userModel) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "A valid user id and model are required.", ctx)
		return
	}

	messages, err := messageService.BroadcastInbox(userID, userModel)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(messages)
}

// GetMessage fetches one message by id. When currentUserId and
// currentUserModel identify the receiver, the fetch marks it read.
func GetMessage(ctx iris.Context) {
	id := ctx.Params().Get("id")
	currentUserID := uint(ctx.URLParamIntDefault("currentUserId", 0))
	currentUserModel := ctx.URLParam("currentUserModel")

	message, err := messageService.Detail(id, currentUserID, currentUserModel)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(message)
}

// DeleteMessage removes a message. Deleting an already-deleted id is not
// an error, the response just says nothing existed.
func DeleteMessage(ctx iris.Context) {
	id := ctx.Params().Get("id")

	existed, err := messageService.Delete(id)
	if err != nil {
		handleMessageError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"deleted": existed})
}

const typingTTL = 5 * time.Second

func typingKey(roomID string, key string) string {
	return fmt.Sprintf("typing:%s:%s", roomID, key)
}

// SetTyping flags the caller as typing in a conversation for a few
// seconds. The flag expires on its own, no explicit clear is needed.
func SetTyping(ctx iris.Context) {
	var input TypingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	roomID := services.ChatRoomID(
		services.ParticipantKey(input.UserModel, input.UserID),
		services.ParticipantKey(input.OtherModel, input.OtherID),
	)
	key := typingKey(roomID, services.ParticipantKey(input.UserModel, input.UserID))

	var redisErr error
	if input.Typing {
		redisErr = storage.Redis.Set(ctx.Request().Context(), key, input.Name, typingTTL).Err()
	} else {
		redisErr = storage.Redis.Del(ctx.Request().Context(), key).Err()
	}
	if redisErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Hub.EmitToRoom(roomID, "typing", iris.Map{
		"roomId": roomID,
		"userId": input.UserID,
		"model":  input.UserModel,
		"name":   input.Name,
		"typing": input.Typing,
	})
	ctx.JSON(iris.Map{"ok": true})
}

// ListTyping returns who is currently typing in a conversation.
func ListTyping(ctx iris.Context) {
	userID := ctx.Params().GetUintDefault("userID", 0)
	userModel := ctx.Params().Get("userModel")
	otherID := ctx.Params().GetUintDefault("otherID", 0)
	otherModel := ctx.URLParamDefault("otherModel", models.ModelStudent)
	if userID == 0 || otherID == 0 || !models.IndividualModel(userModel) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Valid participant ids and model are required.", ctx)
		return
	}

	roomID := services.ChatRoomID(
		services.ParticipantKey(userModel, userID),
		services.ParticipantKey(otherModel, otherID),
	)

	keys, err := storage.Redis.Keys(ctx.Request().Context(), typingKey(roomID, "*")).Result()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	typing := []string{}
	self := typingKey(roomID, services.ParticipantKey(userModel, userID))
	for _, k := range keys {
		if k == self {
			continue
		}
		name, getErr := storage.Redis.Get(ctx.Request().Context(), k).Result()
		if getErr == nil {
			typing = append(typing, name)
		}
	}
	ctx.JSON(iris.Map{"typing": typing})
}

type TypingInput struct {
	UserID     uint   `json:"userId" validate:"required"`
	UserModel  string `json:"userModel" validate:"required,oneof=admin teacher student"`
	OtherID    uint   `json:"otherId" validate:"required"`
	OtherModel string `json:"otherModel" validate:"required,oneof=admin teacher student"`
	Name       string `json:"name"`
	Typing     bool   `json:"typing"`
}
