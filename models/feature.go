package models

import "gorm.io/gorm"

// Feature categories shown in the admin catalog
const (
	FeatureCategoryEvents      = "EVENTOS"
	FeatureCategoryFinance     = "FINANCEIRO"
	FeatureCategoryReports     = "RELATORIOS"
	FeatureCategoryIntegration = "INTEGRACAO"
	FeatureCategoryAdmin       = "ADMIN"
)

// Stable feature codes referenced in code. Codes must never be reused for
// a different capability once plans reference them.
const (
	FeatureCodeLimitedEvents  = "EVENTOS_LIMITADOS"
	FeatureCodeLimitedClients = "CLIENTES_LIMITADOS"
	FeatureCodeFinance        = "FINANCEIRO"
	FeatureCodeReports        = "RELATORIOS"
	FeatureCodeCSVExport      = "EXPORTACAO_CSV"
	FeatureCodeMultiUser      = "MULTIPLOS_USUARIOS"
)

// Feature represents a toggleable capability that plans can bundle
type Feature struct {
	gorm.Model
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Category    string `gorm:"not null;default:'EVENTOS'" json:"category"` // EVENTOS, FINANCEIRO, RELATORIOS, INTEGRACAO, ADMIN
	Active      bool   `gorm:"default:true" json:"active"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
}
