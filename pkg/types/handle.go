package types

import (
	"fmt"
	"regexp"
	"strings"
)

// handlePattern username[#disambiguator]@virtualPlanet[@peerIdSuffix]
var handlePattern = regexp.MustCompile(
	`^([A-Za-z0-9_.\-]{1,64})(?:#([0-9]{1,8}))?@([A-Za-z][A-Za-z0-9_\-]{0,63})(?:@([A-Za-z0-9]{1,64}))?$`)

// SpaceHandle 节点的人类可读化名
type SpaceHandle struct {
	Username      string
	Disambiguator string
	Planet        string
	PeerSuffix    string
}

// ParseSpaceHandle 解析 handle 字符串
func ParseSpaceHandle(s string) (SpaceHandle, error) {
	m := handlePattern.FindStringSubmatch(s)
	if m == nil {
		return SpaceHandle{}, fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	return SpaceHandle{
		Username:      m[1],
		Disambiguator: m[2],
		Planet:        m[3],
		PeerSuffix:    m[4],
	}, nil
}

// IsValidHandle 检查 handle 语法
func IsValidHandle(s string) bool {
	return handlePattern.MatchString(s)
}

// String 返回规范字符串形式
func (h SpaceHandle) String() string {
	var b strings.Builder
	b.WriteString(h.Username)
	if h.Disambiguator != "" {
		b.WriteByte('#')
		b.WriteString(h.Disambiguator)
	}
	b.WriteByte('@')
	b.WriteString(h.Planet)
	if h.PeerSuffix != "" {
		b.WriteByte('@')
		b.WriteString(h.PeerSuffix)
	}
	return b.String()
}

// MatchesPeer 携带 peer 后缀时，后缀必须是该节点 ID 的结尾；无后缀总是匹配
func (h SpaceHandle) MatchesPeer(id PeerID) bool {
	return h.PeerSuffix == "" || strings.HasSuffix(string(id), h.PeerSuffix)
}

// IsZero 是否为零值
func (h SpaceHandle) IsZero() bool {
	return h.Username == "" && h.Planet == ""
}
