package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeEmptyMessage     = "EMPTY_MESSAGE"
	ErrCodeInvalidMessageID = "INVALID_MESSAGE_ID"
	ErrCodeMissingAuthCode  = "MISSING_AUTH_CODE"
	ErrCodeProviderFailure  = "PROVIDER_FAILURE"
)

// NewUnauthorizedError は未認証エラーを生成する。
// セッションCookieが欠落、無効、またはリフレッシュ不能な場合に使用する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewEmptyMessageError はメッセージ本文が空の場合のエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "メッセージ本文が空です。",
		Category: "validation",
		Action:   "本文を入力してから投稿してください。",
	}
}

// NewInvalidMessageIDError はメッセージIDが数値でない場合のエラーを生成する。
func NewInvalidMessageIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMessageID,
		Message:  fmt.Sprintf("無効なメッセージIDです: %s", raw),
		Category: "validation",
		Action:   "メッセージIDには整数を指定してください。",
	}
}

// NewMissingAuthCodeError は認可コード欠落エラーを生成する。
func NewMissingAuthCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingAuthCode,
		Message:  "認可コードがありません。",
		Category: "auth",
		Action:   "ログインフローを最初からやり直してください。",
	}
}

// NewProviderFailureError はIDプロバイダー呼び出し失敗エラーを生成する。
// プロバイダー側のエラー詳細はログにのみ記録し、レスポンスには含めない。
func NewProviderFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderFailure,
		Message:  "IDプロバイダーとの通信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
