package errs

import "errors"

// 业务错误定义，按类别分组。处理器依赖 Kind 映射 HTTP 状态码。
var (
	// 校验类错误
	ErrEmptyHandle  = errors.New("用户名不能为空")
	ErrEmptyMessage = errors.New("消息内容不能为空")
	ErrSelfRequest  = errors.New("不能添加自己为好友")

	// 未找到类错误
	ErrHandleNotFound  = errors.New("用户不存在")
	ErrRequestNotFound = errors.New("好友请求不存在")
	ErrChannelNotFound = errors.New("会话不存在")

	// 冲突类错误
	ErrHandleTaken    = errors.New("用户名已存在")
	ErrAlreadyFriends = errors.New("已经是好友")
	ErrRequestPending = errors.New("好友请求已发送，等待对方处理")
	ErrRequestClosed  = errors.New("好友请求已处理")

	// 身份与权限类错误。ErrUnauthorized 表示身份缺失或无效，
	// 其余表示身份有效但无权操作该资源。
	ErrNotRecipient = errors.New("只有接收方可以处理该请求")
	ErrNotMember    = errors.New("不是会话成员")
	ErrUnauthorized = errors.New("未授权")
)

// Kind 错误类别
type Kind int

const (
	KindInternal Kind = iota // 存储/传输错误等未分类错误
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized // 身份缺失或无效
	KindForbidden    // 身份有效但无权操作
)

// KindOf 返回错误所属类别
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrEmptyHandle),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrSelfRequest):
		return KindValidation
	case errors.Is(err, ErrHandleNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrChannelNotFound):
		return KindNotFound
	case errors.Is(err, ErrHandleTaken),
		errors.Is(err, ErrAlreadyFriends),
		errors.Is(err, ErrRequestPending),
		errors.Is(err, ErrRequestClosed):
		return KindConflict
	case errors.Is(err, ErrNotRecipient),
		errors.Is(err, ErrNotMember):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// HTTPStatus 返回错误对应的 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	default:
		return 500
	}
}
