package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBackendMapsCode(t *testing.T) {
	err := FromBackend(1005, "verify code invalid")

	require.Equal(t, CodeVerifyCodeInvalid, err.Code)
	require.Equal(t, "验证码错误，请重新输入", err.UserMessage())
	require.False(t, err.RequiresReauth())
	require.False(t, err.IsRetryable())
}

func TestRequiresReauthCodes(t *testing.T) {
	reauth := []ErrorCode{CodeTokenExpired, CodeTokenInvalid, CodeRefreshTokenExpired, CodeAccountDisabled}
	for _, code := range reauth {
		require.True(t, New(code, "x").RequiresReauth(), "code %d", code)
	}

	normal := []ErrorCode{CodeVerifyCodeInvalid, CodeInsufficientPoints, CodeNetworkError, CodeServerError}
	for _, code := range normal {
		require.False(t, New(code, "x").RequiresReauth(), "code %d", code)
	}
}

func TestRetryableCodes(t *testing.T) {
	retryable := []ErrorCode{CodeNetworkError, CodeNetworkTimeout, CodeServerError, CodeServerBusy, CodeGenerationQueueFull}
	for _, code := range retryable {
		require.True(t, New(code, "x").IsRetryable(), "code %d", code)
	}

	require.False(t, New(CodeContentViolation, "x").IsRetryable())
	require.False(t, New(CodeVerificationFailed, "x").IsRetryable())
}

func TestUnknownCodeFallsBackToGenericMessage(t *testing.T) {
	err := FromBackend(9999, "mystery")
	require.Equal(t, "未知错误，请稍后重试", err.UserMessage())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(CodeNetworkError, "请求发送失败", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection reset")
}

func TestAsAppErrorWrapsForeignErrors(t *testing.T) {
	appErr := AsAppError(fmt.Errorf("boom"))
	require.Equal(t, CodeUnknown, appErr.Code)

	same := AsAppError(New(CodeServerBusy, "busy"))
	require.Equal(t, CodeServerBusy, same.Code)

	require.Nil(t, AsAppError(nil))
}
