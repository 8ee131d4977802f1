package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ipfs/go-cid"
)

// ============================================================================
//                              线上格式
// ============================================================================

// identityBlock 身份声明块
type identityBlock struct {
	VirtualPlanet  string   `json:"virtual_planet" validate:"required,max=64"`
	Handle         string   `json:"handle" validate:"required,spacehandle"`
	QRProofCID     string   `json:"qr_proof_cid" validate:"required,cid"`
	DID            string   `json:"did" validate:"required,did"`
	DIDDocumentCID string   `json:"did_document_cid,omitempty" validate:"omitempty,cid"`
	OrgDIDs        []string `json:"org_dids,omitempty" validate:"max=16,dive,did"`
	AvatarCID      string   `json:"avatar_cid,omitempty" validate:"omitempty,cid"`
}

// cryptoBlock 签名块
type cryptoBlock struct {
	DefaultRSAPubKeyCID string `json:"default_rsa_pubkey_cid" validate:"required,cid"`
	DIDSignatureCID     string `json:"did_signature_cid" validate:"required,cid"`
}

// identityCommon 各版本共有字段
type identityCommon struct {
	Type                string        `json:"type" validate:"eq=peer.ident"`
	Version             int           `json:"version"`
	Date                time.Time     `json:"date" validate:"required"`
	PeerID              string        `json:"peer_id" validate:"required,max=128"`
	SoftwareVersion     string        `json:"software_version" validate:"max=64"`
	Identity            identityBlock `json:"identity"`
	NetworkGraphRootCID string        `json:"network_graph_root_cid,omitempty" validate:"omitempty,cid"`
}

// identityV3 旧版本变体
type identityV3 struct {
	identityCommon
}

// identityV4 当前版本变体
type identityV4 struct {
	identityCommon
	IdentToken string       `json:"ident_token" validate:"required,min=16,max=256"`
	Crypto     *cryptoBlock `json:"crypto" validate:"required"`
}

// variantHeader 用于判别变体
type variantHeader struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cid", func(fl validator.FieldLevel) bool {
		_, err := cid.Decode(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("did", func(fl validator.FieldLevel) bool {
		return IsValidDID(fl.Field().String())
	})
	_ = v.RegisterValidation("spacehandle", func(fl validator.FieldLevel) bool {
		return IsValidHandle(fl.Field().String())
	})
	return v
}

// ValidateStruct 使用带 cid/did/spacehandle 规则的校验器校验结构体
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ============================================================================
//                              编解码
// ============================================================================

// DecodeIdentityMessage 解码并校验身份消息
//
// 先读取 type/version 判别变体，再按变体解码、做模式校验，最后转换为强类型结构。
// 未知字段被忽略。
func DecodeIdentityMessage(data []byte) (*IdentityMessage, error) {
	var head variantHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if head.Type != IdentMessageType {
		return nil, fmt.Errorf("%w: type %q", ErrUnknownIdentityVariant, head.Type)
	}

	switch head.Version {
	case IdentVersionLegacy:
		var w identityV3
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
		}
		if err := validate.Struct(&w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentitySchema, err)
		}
		return w.identityCommon.toMessage()

	case IdentVersionCurrent:
		var w identityV4
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
		}
		if err := validate.Struct(&w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentitySchema, err)
		}
		msg, err := w.identityCommon.toMessage()
		if err != nil {
			return nil, err
		}
		msg.IdentToken = w.IdentToken
		msg.Crypto = &CryptoBlock{}
		// 已通过 cid 规则校验
		msg.Crypto.DefaultRSAPubKey, _ = cid.Decode(w.Crypto.DefaultRSAPubKeyCID)
		msg.Crypto.DIDSignature, _ = cid.Decode(w.Crypto.DIDSignatureCID)
		return msg, nil

	default:
		return nil, fmt.Errorf("%w: version %d", ErrUnknownIdentityVariant, head.Version)
	}
}

// EncodeIdentityMessage 编码身份消息
//
// 编码前同样做模式校验，保证不会广播本地都无法接受的消息。
func EncodeIdentityMessage(m *IdentityMessage) ([]byte, error) {
	common := identityCommon{
		Type:            IdentMessageType,
		Version:         m.Version,
		Date:            m.Date.UTC(),
		PeerID:          string(m.PeerID),
		SoftwareVersion: m.SoftwareVersion,
		Identity: identityBlock{
			VirtualPlanet:  m.Identity.VirtualPlanet,
			Handle:         m.Identity.Handle.String(),
			QRProofCID:     CIDString(m.Identity.QRProof),
			DID:            m.Identity.DID,
			DIDDocumentCID: CIDString(m.Identity.DocumentCID),
			OrgDIDs:        m.Identity.OrgDIDs,
			AvatarCID:      CIDString(m.Identity.Avatar),
		},
		NetworkGraphRootCID: CIDString(m.NetworkGraphRoot),
	}

	var wire interface{}
	switch m.Version {
	case IdentVersionLegacy:
		wire = &identityV3{identityCommon: common}
	case IdentVersionCurrent:
		w := &identityV4{identityCommon: common, IdentToken: m.IdentToken}
		if m.Crypto != nil {
			w.Crypto = &cryptoBlock{
				DefaultRSAPubKeyCID: CIDString(m.Crypto.DefaultRSAPubKey),
				DIDSignatureCID:     CIDString(m.Crypto.DIDSignature),
			}
		}
		wire = w
	default:
		return nil, fmt.Errorf("%w: version %d", ErrUnknownIdentityVariant, m.Version)
	}

	if err := validate.Struct(wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentitySchema, err)
	}
	return json.Marshal(wire)
}

// toMessage 将已校验的共有字段转换为强类型结构
func (w *identityCommon) toMessage() (*IdentityMessage, error) {
	handle, err := ParseSpaceHandle(w.Identity.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentitySchema, err)
	}
	if handle.Planet != w.Identity.VirtualPlanet {
		return nil, fmt.Errorf("%w: handle planet %q != virtual_planet %q",
			ErrIdentitySchema, handle.Planet, w.Identity.VirtualPlanet)
	}

	msg := &IdentityMessage{
		Version:         w.Version,
		PeerID:          PeerID(w.PeerID),
		SoftwareVersion: w.SoftwareVersion,
		Date:            w.Date,
		Identity: IdentityClaim{
			VirtualPlanet: w.Identity.VirtualPlanet,
			Handle:        handle,
			DID:           w.Identity.DID,
			OrgDIDs:       w.Identity.OrgDIDs,
		},
	}

	// 以下字段均已通过 cid 规则校验
	msg.Identity.QRProof, _ = cid.Decode(w.Identity.QRProofCID)
	msg.Identity.DocumentCID, _ = ParseOptionalCID(w.Identity.DIDDocumentCID)
	msg.Identity.Avatar, _ = ParseOptionalCID(w.Identity.AvatarCID)
	msg.NetworkGraphRoot, _ = ParseOptionalCID(w.NetworkGraphRootCID)
	return msg, nil
}
