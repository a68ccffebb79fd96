package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind 错误分类
type Kind string

const (
	KindTransport         Kind = "transport"          // 网络、超时、非 2xx
	KindAuthentication    Kind = "authentication"     // 凭证缺失或被拒
	KindPolicyRejection   Kind = "policy_rejection"   // 风控拒绝（只记录，不视为失败）
	KindExchangeRejection Kind = "exchange_rejection" // 交易所返回失败
	KindConfiguration     Kind = "configuration"      // 启动配置错误
)

// Error 带分类的错误
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap 包装为分类错误，err 为 nil 时返回 nil
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
}

// Errorf 创建分类错误
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf 返回最外层分类，未分类返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind err 链上是否有指定分类
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
