package didauth

import (
	"encoding/json"
	"fmt"
	"time"
)

// 凭证常量
const (
	// ProofType 签名类型
	ProofType = "RsaSignature2018"
	// ProofPurpose 签名用途
	ProofPurpose = "authentication"
	// CredentialType 凭证类型
	CredentialType = "DIDAuthCredential"
)

// CredentialContext 凭证 @context
var CredentialContext = []string{"https://www.w3.org/2018/credentials/v1"}

// AuthRequest /auth 请求体
type AuthRequest struct {
	DID        string `json:"did" validate:"required,did"`
	Nonce      string `json:"nonce" validate:"required,max=128"`
	Challenge  string `json:"challenge" validate:"required,max=1024"`
	IdentToken string `json:"ident_token" validate:"required,max=256"`
}

// PingRequest /didping 请求体
type PingRequest struct {
	DID        string `json:"did" validate:"required,did"`
	IdentToken string `json:"ident_token" validate:"required,max=256"`
}

// Credential /auth 应答：可验证凭证形式的签名文档
type Credential struct {
	Context           []string          `json:"@context"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             Proof             `json:"proof"`
}

// CredentialSubject 凭证主体
type CredentialSubject struct {
	ID string `json:"id"`
}

// Proof 凭证签名
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	ProofPurpose       string    `json:"proofPurpose"`
	VerificationMethod string    `json:"verificationMethod"`
	Challenge          string    `json:"challenge"`
	Nonce              string    `json:"nonce"`

	// ProofValue 对 challenge 的 PSS 签名（标准 base64）
	ProofValue string `json:"proofValue"`
}

// ============================================================================
//                              Pong
// ============================================================================

// DIDStatus pong 中单个 DID 的状态
type DIDStatus struct {
	UserStatus        string    `json:"userstatus"`
	UserStatusMessage string    `json:"userstatusmessage"`
	Date              time.Time `json:"date"`
}

// Pong /didping 应答
//
// 线上格式：{"didpong": {"version": "...", "<did>": {...}}}
type Pong struct {
	Version string
	DID     string
	Status  DIDStatus
}

// MarshalJSON 以 DID 为键输出状态
func (p Pong) MarshalJSON() ([]byte, error) {
	status, err := json.Marshal(p.Status)
	if err != nil {
		return nil, err
	}
	version, err := json.Marshal(p.Version)
	if err != nil {
		return nil, err
	}
	inner := map[string]json.RawMessage{
		"version": version,
		p.DID:     status,
	}
	return json.Marshal(map[string]map[string]json.RawMessage{"didpong": inner})
}

// UnmarshalJSON 解析 pong，要求恰好一个 DID 条目
func (p *Pong) UnmarshalJSON(data []byte) error {
	var outer struct {
		DIDPong map[string]json.RawMessage `json:"didpong"`
	}
	if err := json.Unmarshal(data, &outer); err != nil {
		return err
	}
	if outer.DIDPong == nil {
		return fmt.Errorf("%w: missing didpong", ErrInvalidFrame)
	}

	var out Pong
	for k, v := range outer.DIDPong {
		if k == "version" {
			if err := json.Unmarshal(v, &out.Version); err != nil {
				return err
			}
			continue
		}
		if out.DID != "" {
			return fmt.Errorf("%w: multiple did entries", ErrInvalidFrame)
		}
		out.DID = k
		if err := json.Unmarshal(v, &out.Status); err != nil {
			return err
		}
	}
	if out.DID == "" {
		return fmt.Errorf("%w: missing did entry", ErrInvalidFrame)
	}
	*p = out
	return nil
}

// ============================================================================
//                              旧版 ping
// ============================================================================

// LegacyPing 旧版探测请求
type LegacyPing struct {
	ID string `json:"ping"`
}

// LegacyPong 旧版探测应答
type LegacyPong struct {
	ID   string    `json:"pong"`
	Date time.Time `json:"date"`
}
