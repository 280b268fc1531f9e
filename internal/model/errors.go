package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, billing, synthesis, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInvalidPlan     = "INVALID_PLAN"
	ErrCodeCheckoutFailed  = "CHECKOUT_FAILED"
	ErrCodeAudioNotFound   = "AUDIO_NOT_FOUND"
	ErrCodeProfileNotFound = "PROFILE_NOT_FOUND"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication is required.",
		Category: "auth",
		Action:   "Sign in and try again.",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request body and try again.",
	}
}

// NewInvalidPlanError は存在しないプランIDが指定された場合のエラーを生成する。
func NewInvalidPlanError(planID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlan,
		Message:  fmt.Sprintf("Unknown plan: %s", planID),
		Category: "validation",
		Action:   "Choose a plan from the pricing page.",
	}
}

// NewCheckoutFailedError は決済セッション作成失敗エラーを生成する。
func NewCheckoutFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCheckoutFailed,
		Message:  "Something went wrong. Please try again.",
		Category: "billing",
		Action:   "Wait a moment and try again.",
	}
}

// NewAudioNotFoundError は音声が見つからない場合のエラーを生成する。
func NewAudioNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAudioNotFound,
		Message:  fmt.Sprintf("Audio not found: %s", id),
		Category: "synthesis",
		Action:   "Generate the speech again.",
	}
}

// NewProfileNotFoundError はプロフィールが存在しない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "Profile not found.",
		Category: "auth",
		Action:   "Sign in again to create your profile.",
	}
}

// NewRequestTooLargeError はリクエストボディが上限を超えた場合のエラーを生成する。
func NewRequestTooLargeError(limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeRequestTooLarge,
		Message:  fmt.Sprintf("Request body exceeds %d bytes.", limit),
		Category: "validation",
		Action:   "Shorten the text and try again.",
	}
}
