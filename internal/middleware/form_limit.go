package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/voxly/internal/model"
)

// DefaultFormMaxBytes は画面フォームのリクエストボディ上限。
const DefaultFormMaxBytes int64 = 64 << 10

// NewFormLimitMiddleware は状態変更リクエストのボディをmaxBytesに制限し、フォームを解析する。
// CSRFミドルウェアより前に配置する。以降のPostFormValueは解析済みのフォームを参照する。
// 上限超過は413、解析失敗は400を返す。
func NewFormLimitMiddleware(maxBytes int64) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultFormMaxBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			if err := r.ParseForm(); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					slog.Warn("request body too large",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Int64("limit", maxBytes),
					)
					WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewRequestTooLargeError(maxBytes))
					return
				}
				WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed form"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
