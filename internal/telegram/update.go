package telegram

import "crypto/subtle"

// Message types reported in MessageData.
const (
	TypeText     = "text"
	TypeOther    = "other"
	TypeCallback = "callback"
)

// MessageData is the flattened view of an update the bot handles.
type MessageData struct {
	UpdateID        int64  `json:"update_id"`
	MessageID       int64  `json:"message_id"`
	ChatID          int64  `json:"chat_id"`
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Text            string `json:"text,omitempty"`
	Date            int64  `json:"date,omitempty"`
	LanguageCode    string `json:"language_code"`
	MessageType     string `json:"message_type"`
	CallbackQueryID string `json:"callback_query_id,omitempty"`
	CallbackData    string `json:"callback_data,omitempty"`
}

// IsCallback reports whether the data came from a button press.
func (d *MessageData) IsCallback() bool {
	return d.MessageType == TypeCallback
}

// ExtractMessageData flattens messages, edited messages and callback queries.
// Other update kinds, and messages without a sender, report false.
func ExtractMessageData(u Update) (*MessageData, bool) {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}

	if msg != nil {
		if msg.From == nil {
			return nil, false
		}
		data := &MessageData{
			UpdateID:     u.UpdateID,
			MessageID:    msg.MessageID,
			ChatID:       msg.Chat.ID,
			Date:         msg.Date,
			MessageType:  TypeOther,
			LanguageCode: "en",
		}
		fillUser(data, msg.From)
		if msg.Text != nil {
			data.Text = *msg.Text
			data.MessageType = TypeText
		}
		return data, true
	}

	if cb := u.CallbackQuery; cb != nil {
		if cb.Message == nil {
			return nil, false
		}
		data := &MessageData{
			UpdateID:        u.UpdateID,
			MessageID:       cb.Message.MessageID,
			ChatID:          cb.Message.Chat.ID,
			CallbackQueryID: cb.ID,
			CallbackData:    cb.Data,
			MessageType:     TypeCallback,
			LanguageCode:    "en",
		}
		fillUser(data, &cb.From)
		return data, true
	}

	return nil, false
}

func fillUser(d *MessageData, from *User) {
	d.UserID = from.ID
	d.Username = from.Username
	d.FirstName = from.FirstName
	d.LastName = from.LastName
	if from.LanguageCode != "" {
		d.LanguageCode = from.LanguageCode
	}
}

// VerifySecretToken compares the X-Telegram-Bot-Api-Secret-Token header with the configured secret.
func VerifySecretToken(header, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}
