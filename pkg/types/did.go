package types

import (
	"fmt"
	"regexp"
	"strings"
)

// didPattern did:<method>:<method-specific-id>
var didPattern = regexp.MustCompile(`^did:[a-z0-9]+:[A-Za-z0-9._%\-]+(?::[A-Za-z0-9._%\-]+)*$`)

// IsValidDID 检查 DID 语法
func IsValidDID(s string) bool {
	return didPattern.MatchString(s)
}

// DIDMethod 返回 DID 的 method 部分
func DIDMethod(did string) (string, error) {
	if !IsValidDID(did) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDID, did)
	}
	parts := strings.SplitN(did, ":", 3)
	return parts[1], nil
}

// VerificationMethodID 返回 DID 默认验证方法的引用
func VerificationMethodID(did string) string {
	return did + "#keys-1"
}
