package errors

import (
	"errors"
	"fmt"
)

// ErrorCode 后端错误码，与服务端约定保持一致
type ErrorCode int

const (
	// 成功
	CodeSuccess ErrorCode = 0

	// 认证错误 (1000-1999)
	CodeTokenExpired          ErrorCode = 1001
	CodeTokenInvalid          ErrorCode = 1002
	CodeRefreshTokenExpired   ErrorCode = 1003
	CodeLoginFailed           ErrorCode = 1004
	CodeVerifyCodeInvalid     ErrorCode = 1005
	CodeVerifyCodeExpired     ErrorCode = 1006
	CodeVerifyCodeTooFrequent ErrorCode = 1007
	CodeAccountDisabled       ErrorCode = 1008
	CodeAccountNotFound       ErrorCode = 1009
	CodeWechatAuthFailed      ErrorCode = 1010
	CodeAppleAuthFailed       ErrorCode = 1011

	// 业务错误 (2000-2999)
	CodeInsufficientPoints  ErrorCode = 2001
	CodePointsDeductFailed  ErrorCode = 2002
	CodeMembershipExpired   ErrorCode = 2003
	CodePaymentVerifyFailed ErrorCode = 2004
	CodeGenerationFailed    ErrorCode = 2009
	CodeGenerationTimeout   ErrorCode = 2010
	CodeGenerationCancelled ErrorCode = 2011
	CodeGenerationQueueFull ErrorCode = 2012
	CodeDailyLimitExceeded  ErrorCode = 2013
	CodeContentViolation    ErrorCode = 2014
	CodeFaceNotDetected     ErrorCode = 2017

	// 资源错误 (3000-3999)
	CodeWorkNotFound     ErrorCode = 3001
	CodeTemplateNotFound ErrorCode = 3004
	CodeUserNotFound     ErrorCode = 3006

	// 参数错误 (4000-4999)
	CodeParameterMissing ErrorCode = 4001
	CodeParameterInvalid ErrorCode = 4002
	CodePhoneInvalid     ErrorCode = 4003

	// 系统错误 (5000-5999)
	CodeServerError       ErrorCode = 5001
	CodeServerMaintenance ErrorCode = 5002
	CodeServerBusy        ErrorCode = 5003

	// 客户端错误（负数，不来自后端）
	CodeNetworkError        ErrorCode = -1
	CodeNetworkTimeout      ErrorCode = -2
	CodeNetworkNoConnection ErrorCode = -3
	CodeParseError          ErrorCode = -4
	CodeVerificationFailed  ErrorCode = -5
	CodeInvalidState        ErrorCode = -6
	CodeUnknown             ErrorCode = -999
)

// userMessages 错误码到用户提示文案的映射，保证每个错误只展示一条可读文案
var userMessages = map[ErrorCode]string{
	CodeSuccess:               "操作成功",
	CodeTokenExpired:          "登录已过期，请重新登录",
	CodeTokenInvalid:          "登录已过期，请重新登录",
	CodeRefreshTokenExpired:   "登录已过期，请重新登录",
	CodeLoginFailed:           "登录失败，请稍后重试",
	CodeVerifyCodeInvalid:     "验证码错误，请重新输入",
	CodeVerifyCodeExpired:     "验证码已过期，请重新获取",
	CodeVerifyCodeTooFrequent: "验证码发送太频繁，请稍后再试",
	CodeAccountDisabled:       "账号已被禁用，请联系客服",
	CodeAccountNotFound:       "账号不存在",
	CodeWechatAuthFailed:      "微信授权失败，请重试",
	CodeAppleAuthFailed:       "Apple登录失败，请重试",
	CodeInsufficientPoints:    "积分不足，请先充值",
	CodePointsDeductFailed:    "积分扣除失败，请重试",
	CodeMembershipExpired:     "会员已过期，请续费",
	CodePaymentVerifyFailed:   "支付验证失败，请联系客服",
	CodeGenerationFailed:      "生成失败，积分已退还",
	CodeGenerationTimeout:     "生成超时，积分已退还",
	CodeGenerationCancelled:   "生成已取消",
	CodeGenerationQueueFull:   "当前排队人数较多，请稍后再试",
	CodeDailyLimitExceeded:    "今日生成次数已达上限",
	CodeContentViolation:      "内容违规，请更换图片",
	CodeFaceNotDetected:       "未检测到人脸，请更换照片",
	CodeWorkNotFound:          "作品不存在或已删除",
	CodeTemplateNotFound:      "模板不可用",
	CodeUserNotFound:          "用户不存在",
	CodeParameterMissing:      "请填写完整信息",
	CodeParameterInvalid:      "参数格式错误",
	CodePhoneInvalid:          "请输入正确的手机号",
	CodeServerError:           "服务器开小差了，请稍后重试",
	CodeServerMaintenance:     "系统维护中，请稍后再来",
	CodeServerBusy:            "服务器繁忙，请稍后重试",
	CodeNetworkError:          "网络异常，请检查网络连接",
	CodeNetworkTimeout:        "网络超时，请重试",
	CodeNetworkNoConnection:   "无网络连接，请检查网络设置",
	CodeParseError:            "数据解析失败",
	CodeVerificationFailed:    "购买验证失败",
	CodeInvalidState:          "操作状态不正确",
	CodeUnknown:               "未知错误，请稍后重试",
}

// AppError 应用错误
type AppError struct {
	Code    ErrorCode // 错误码
	Message string    // 原始错误消息（后端返回或内部描述）
	Err     error     // 原始错误
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现errors.Unwrap接口
func (e *AppError) Unwrap() error {
	return e.Err
}

// UserMessage 返回用户可见的提示文案，未知错误码统一兜底
func (e *AppError) UserMessage() string {
	if msg, ok := userMessages[e.Code]; ok {
		return msg
	}
	return userMessages[CodeUnknown]
}

// RequiresReauth 判断错误是否需要强制重新登录
func (e *AppError) RequiresReauth() bool {
	switch e.Code {
	case CodeTokenExpired, CodeTokenInvalid, CodeRefreshTokenExpired, CodeAccountDisabled:
		return true
	}
	return false
}

// IsRetryable 判断错误是否可由调用方重试
func (e *AppError) IsRetryable() bool {
	switch e.Code {
	case CodeNetworkError, CodeNetworkTimeout, CodeServerError, CodeServerBusy, CodeGenerationQueueFull:
		return true
	}
	return false
}

// New 创建指定错误码的错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// FromBackend 根据后端返回的 code/message 构造错误
func FromBackend(code int, message string) *AppError {
	return &AppError{Code: ErrorCode(code), Message: message}
}

// NewNetworkError 创建网络错误
func NewNetworkError(err error) *AppError {
	return &AppError{Code: CodeNetworkError, Message: "请求发送失败", Err: err}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(err error) *AppError {
	return &AppError{Code: CodeNetworkTimeout, Message: "请求超时", Err: err}
}

// NewParseError 创建解析错误
func NewParseError(err error) *AppError {
	return &AppError{Code: CodeParseError, Message: "响应解析失败", Err: err}
}

// NewVerificationError 创建购买凭据验证错误
func NewVerificationError(err error) *AppError {
	return &AppError{Code: CodeVerificationFailed, Message: "收据验证失败", Err: err}
}

// NewInvalidStateError 创建状态机非法操作错误
func NewInvalidStateError(message string) *AppError {
	return &AppError{Code: CodeInvalidState, Message: message}
}

// AsAppError 提取错误链中的AppError，不存在时归类为未知错误
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: CodeUnknown, Message: err.Error(), Err: err}
}

// Is 透传标准库errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// CodeOf 返回错误链中的错误码，非AppError归类为未知错误
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	return AsAppError(err).Code
}
