package models

import "gorm.io/gorm"

// CreateDefaultFeatures seeds the feature catalog on first boot
func CreateDefaultFeatures(db *gorm.DB) error {
	defaultFeatures := []Feature{
		{
			Code:        FeatureCodeLimitedEvents,
			Name:        "Criação de eventos",
			Description: "Create events up to the plan's monthly cap",
			Category:    FeatureCategoryEvents,
			SortOrder:   1,
		},
		{
			Code:        FeatureCodeLimitedClients,
			Name:        "Cadastro de clientes",
			Description: "Register clients up to the plan's yearly cap",
			Category:    FeatureCategoryEvents,
			SortOrder:   2,
		},
		{
			Code:        FeatureCodeFinance,
			Name:        "Controle financeiro",
			Description: "Payments and cost tracking per event",
			Category:    FeatureCategoryFinance,
			SortOrder:   3,
		},
		{
			Code:        FeatureCodeReports,
			Name:        "Relatórios",
			Description: "Reporting dashboards",
			Category:    FeatureCategoryReports,
			SortOrder:   4,
		},
		{
			Code:        FeatureCodeCSVExport,
			Name:        "Exportação CSV",
			Description: "Export reports and client lists as CSV",
			Category:    FeatureCategoryReports,
			SortOrder:   5,
		},
		{
			Code:        FeatureCodeMultiUser,
			Name:        "Múltiplos usuários",
			Description: "Additional account seats",
			Category:    FeatureCategoryAdmin,
			SortOrder:   6,
		},
	}
	for _, feature := range defaultFeatures {
		if err := db.FirstOrCreate(&feature, "code = ?", feature.Code).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateDefaultPlans seeds the plan catalog. Feature sets reference the
// default features by code, so CreateDefaultFeatures must run first.
func CreateDefaultPlans(db *gorm.DB) error {
	featuresByCode := func(codes ...string) ([]Feature, error) {
		var features []Feature
		if err := db.Where("code IN ?", codes).Find(&features).Error; err != nil {
			return nil, err
		}
		return features, nil
	}

	basic, err := featuresByCode(FeatureCodeLimitedEvents, FeatureCodeLimitedClients)
	if err != nil {
		return err
	}
	pro, err := featuresByCode(FeatureCodeLimitedEvents, FeatureCodeLimitedClients,
		FeatureCodeFinance, FeatureCodeReports)
	if err != nil {
		return err
	}
	premium, err := featuresByCode(FeatureCodeLimitedEvents, FeatureCodeLimitedClients,
		FeatureCodeFinance, FeatureCodeReports, FeatureCodeCSVExport, FeatureCodeMultiUser)
	if err != nil {
		return err
	}

	intPtr := func(v int) *int { return &v }

	defaultPlans := []Plan{
		{
			Name:            "basico",
			Description:     "Plano básico com eventos e clientes limitados",
			HotmartCode:     "EVH-BASIC-M",
			PriceCents:      4900, // R$49
			BillingInterval: BillingIntervalMonthly,
			MaxEvents:       intPtr(10),
			MaxClients:      intPtr(100),
			MaxUsers:        intPtr(1),
			Features:        basic,
		},
		{
			Name:            "profissional",
			Description:     "Plano profissional com financeiro e relatórios",
			HotmartCode:     "EVH-PRO-M",
			PriceCents:      9900, // R$99
			BillingInterval: BillingIntervalMonthly,
			Highlighted:     true,
			MaxEvents:       intPtr(50),
			MaxClients:      intPtr(1000),
			MaxUsers:        intPtr(3),
			Features:        pro,
		},
		{
			Name:            "premium",
			Description:     "Plano premium sem limites de eventos e clientes",
			HotmartCode:     "EVH-PREMIUM-A",
			PriceCents:      99900, // R$999/ano
			BillingInterval: BillingIntervalYearly,
			MaxUsers:        intPtr(10),
			Features:        premium,
		},
	}
	for _, plan := range defaultPlans {
		if err := db.FirstOrCreate(&plan, "name = ?", plan.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
