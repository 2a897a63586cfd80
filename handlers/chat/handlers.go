package chat

import (
	"net/http"

	"linkinpurry/backend/handlers/httpx"
)

// GetChatsHandler lists the caller's conversations with the latest message of each
// Used by: /api/chat
func GetChatsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		conversations, err := store.Conversations(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "chats fetched", conversations)
	}
}

// GetChatMessagesHandler returns the full history with user {id}, oldest first
// Used by: /api/chat/{id}/messages
func GetChatMessagesHandler(router *Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		otherID, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		messages, err := router.History(r.Context(), userID, otherID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "messages fetched", HistoryPayload{ConversationID: otherID, Messages: messages})
	}
}
