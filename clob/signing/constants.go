package signing

const (
	// ClobDomainName L1 认证 EIP712 域名
	ClobDomainName = "ClobAuthDomain"

	// ClobVersion EIP712 版本
	ClobVersion = "1"

	// MsgToSign L1 认证固定消息
	MsgToSign = "This message attests that I control the given wallet"
)
