// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/msgboard/internal/middleware"
	"github.com/hitoshi/msgboard/internal/model"
)

// MessageStoreInterface はメッセージハンドラーが必要とするストア操作のインターフェース。
type MessageStoreInterface interface {
	// List は現存する全メッセージを挿入順で返す。
	List() []model.Message
	// Create はメッセージを作成して追加し、作成されたレコードを返す。
	Create(text string, author *model.MessageAuthor) model.Message
	// Delete は指定IDのメッセージを削除する。存在しないIDは無視する。
	Delete(id int)
}

// MessageSanitizer はメッセージ本文のサニタイズのインターフェース。
// security.NewMessageSanitizerが返す実装を想定する。
type MessageSanitizer interface {
	Sanitize(text string) string
}

// MessageRecorder はメッセージ操作のメトリクスを記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type MessageRecorder interface {
	RecordMessageCreated()
	RecordMessageDeleted()
}

// MessageHandler はメッセージ管理のHTTPハンドラー。
type MessageHandler struct {
	store     MessageStoreInterface
	sanitizer MessageSanitizer
	recorder  MessageRecorder // nilの場合は記録しない
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(store MessageStoreInterface, sanitizer MessageSanitizer, recorder MessageRecorder) *MessageHandler {
	return &MessageHandler{
		store:     store,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// createMessageRequest はメッセージ作成リクエストのボディ。
type createMessageRequest struct {
	Text string `json:"text"`
}

// ListMessages は現存する全メッセージを挿入順で返す。認証不要の公開ルート。
// GET /api/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages := h.store.List()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// CreateMessage はメッセージを作成する。
// 投稿者情報は認証済みユーザーから非正規化してレコードに保持する。
// POST /api/messages
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	text := h.sanitizer.Sanitize(req.Text)
	if text == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewEmptyMessageError())
		return
	}

	msg := h.store.Create(text, &model.MessageAuthor{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})

	if h.recorder != nil {
		h.recorder.RecordMessageCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// DeleteMessage はメッセージを削除する。
// 存在しないIDの削除もエラーにせず204を返す（no-op）。
// DELETE /api/messages/{id}
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidMessageIDError(raw))
		return
	}

	h.store.Delete(id)

	if h.recorder != nil {
		h.recorder.RecordMessageDeleted()
	}

	w.WriteHeader(http.StatusNoContent)
}
