package domain

import "strings"

// DocumentType 客戶證件類型，封閉集合
type DocumentType uint8

const (
	DocumentTypeNationalID DocumentType = iota + 1
	DocumentTypePassport
)

func (d DocumentType) String() string {
	switch d {
	case DocumentTypeNationalID:
		return "national_id"
	case DocumentTypePassport:
		return "passport"
	default:
		return "unknown"
	}
}

// ParseDocumentType 將外部輸入對應到證件類型
// 接受 "national_id"、"National ID"、"passport"、"Passport ID" 等寫法
func ParseDocumentType(s string) (DocumentType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "national_id", "nationalid":
		return DocumentTypeNationalID, nil
	case "passport", "passport_id", "passportid":
		return DocumentTypePassport, nil
	default:
		return 0, ErrUnsupportedDocumentType
	}
}
