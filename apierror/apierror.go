// Package apierror はハンドラ共通のエラー分類とJSONレスポンス出力です。
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ValidationError は必須パラメータの欠落など (400) を表します。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError は参照先 (年度設定など) が存在しないこと (404) を表します。
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct は validate タグを検証し、失敗時は ValidationError を返します。
// message が空でなければそれを、空なら検証エラーの内容をメッセージにします。
func ValidateStruct(s any, message string) error {
	if err := validate.Struct(s); err != nil {
		if message != "" {
			return &ValidationError{Message: message}
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Validation("invalid parameter: %s", verrs[0].Field())
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// Status はエラーに対応する HTTP ステータスを返します。
func Status(err error) int {
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はエラーを分類してJSONで返します。想定外のエラーはメッセージをそのまま含めます。
func WriteError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ve):
		WriteJSONError(w, ve.Message, http.StatusBadRequest)
	case errors.As(err, &nf):
		WriteJSONError(w, nf.Message, http.StatusNotFound)
	default:
		WriteJSONError(w, "An error occurred: "+err.Error(), http.StatusInternalServerError)
	}
}

func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
