package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	hsndomain "github.com/smallbiznis/gstengine/internal/hsn/domain"
	referencedomain "github.com/smallbiznis/gstengine/internal/reference/domain"
	taxratedomain "github.com/smallbiznis/gstengine/internal/taxrate/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stats reports how many rows a seed run inserted.
type Stats struct {
	States              int
	ClassificationCodes int
	RateRecords         int
}

type codeSeed struct {
	Code        string
	Parent      string
	Description string
}

type rateSeed struct {
	Code          string
	Component     taxratedomain.ComponentType
	Business      taxratedomain.BusinessType
	Rate          string
	FixedPerUnit  string
	From          time.Time
	To            *time.Time
	Notification  string
	ReverseCharge bool
	Conditions    map[string]any
}

var gstLaunch = time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var referenceStates = []referencedomain.State{
	{Code: "JK", GSTCode: "01", Name: "Jammu and Kashmir", UnionTerritory: true},
	{Code: "HP", GSTCode: "02", Name: "Himachal Pradesh"},
	{Code: "PB", GSTCode: "03", Name: "Punjab"},
	{Code: "CH", GSTCode: "04", Name: "Chandigarh", UnionTerritory: true},
	{Code: "UK", GSTCode: "05", Name: "Uttarakhand"},
	{Code: "HR", GSTCode: "06", Name: "Haryana"},
	{Code: "DL", GSTCode: "07", Name: "Delhi", UnionTerritory: true},
	{Code: "RJ", GSTCode: "08", Name: "Rajasthan"},
	{Code: "UP", GSTCode: "09", Name: "Uttar Pradesh"},
	{Code: "BR", GSTCode: "10", Name: "Bihar"},
	{Code: "SK", GSTCode: "11", Name: "Sikkim"},
	{Code: "AR", GSTCode: "12", Name: "Arunachal Pradesh"},
	{Code: "NL", GSTCode: "13", Name: "Nagaland"},
	{Code: "MN", GSTCode: "14", Name: "Manipur"},
	{Code: "MZ", GSTCode: "15", Name: "Mizoram"},
	{Code: "TR", GSTCode: "16", Name: "Tripura"},
	{Code: "ML", GSTCode: "17", Name: "Meghalaya"},
	{Code: "AS", GSTCode: "18", Name: "Assam"},
	{Code: "WB", GSTCode: "19", Name: "West Bengal"},
	{Code: "JH", GSTCode: "20", Name: "Jharkhand"},
	{Code: "OD", GSTCode: "21", Name: "Odisha"},
	{Code: "CG", GSTCode: "22", Name: "Chhattisgarh"},
	{Code: "MP", GSTCode: "23", Name: "Madhya Pradesh"},
	{Code: "GJ", GSTCode: "24", Name: "Gujarat"},
	{Code: "DD", GSTCode: "25", Name: "Daman and Diu", UnionTerritory: true},
	{Code: "DN", GSTCode: "26", Name: "Dadra and Nagar Haveli and Daman and Diu", UnionTerritory: true},
	{Code: "MH", GSTCode: "27", Name: "Maharashtra"},
	{Code: "KA", GSTCode: "29", Name: "Karnataka"},
	{Code: "GA", GSTCode: "30", Name: "Goa"},
	{Code: "LD", GSTCode: "31", Name: "Lakshadweep", UnionTerritory: true},
	{Code: "KL", GSTCode: "32", Name: "Kerala"},
	{Code: "TN", GSTCode: "33", Name: "Tamil Nadu"},
	{Code: "PY", GSTCode: "34", Name: "Puducherry", UnionTerritory: true},
	{Code: "AN", GSTCode: "35", Name: "Andaman and Nicobar Islands", UnionTerritory: true},
	{Code: "TS", GSTCode: "36", Name: "Telangana"},
	{Code: "AP", GSTCode: "37", Name: "Andhra Pradesh"},
	{Code: "LA", GSTCode: "38", Name: "Ladakh", UnionTerritory: true},
}

// Parents are listed before children.
var referenceCodes = []codeSeed{
	{"04", "", "Dairy produce; birds' eggs; natural honey"},
	{"0401", "04", "Milk and cream, not concentrated nor containing added sugar"},
	{"24", "", "Tobacco and manufactured tobacco substitutes"},
	{"2402", "24", "Cigars, cheroots, cigarillos and cigarettes"},
	{"25", "", "Salt; sulphur; earths and stone; plastering materials, lime and cement"},
	{"2523", "25", "Portland cement, aluminous cement, slag cement, supersulphate cement"},
	{"84", "", "Nuclear reactors, boilers, machinery and mechanical appliances"},
	{"8471", "84", "Automatic data processing machines and units thereof"},
	{"87", "", "Vehicles other than railway or tramway rolling stock"},
	{"8703", "87", "Motor cars and other motor vehicles principally designed for the transport of persons"},
	{"99", "", "Services"},
	{"9954", "99", "Construction services"},
	{"9965", "99", "Goods transport services"},
}

var referenceRates = []rateSeed{
	{Code: "0401", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "0", From: gstLaunch,
		Notification: "2/2017-Integrated Tax (Rate)",
		Conditions: map[string]any{
			taxratedomain.ConditionExemptionCriteria: map[string]any{taxratedomain.ExemptionEssentialGoods: true},
		}},
	{Code: "2402", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "28", From: gstLaunch},
	{Code: "2402", Component: taxratedomain.ComponentCESS, Business: taxratedomain.BusinessB2B, Rate: "5", FixedPerUnit: "4.17", From: gstLaunch,
		Notification: "1/2017-Compensation Cess (Rate)", Conditions: map[string]any{"unit": "stick", "length_mm_max": 75}},
	{Code: "2523", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "28", From: gstLaunch, To: date(2025, 9, 22),
		Notification: "1/2017-Integrated Tax (Rate)"},
	{Code: "2523", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "18", From: *date(2025, 9, 22),
		Notification: "9/2025-Integrated Tax (Rate)"},
	{Code: "2523", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessComposition, Rate: "1", From: gstLaunch},
	{Code: "8471", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "18", From: gstLaunch},
	{Code: "8703", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "28", From: gstLaunch},
	{Code: "8703", Component: taxratedomain.ComponentCESS, Business: taxratedomain.BusinessB2B, Rate: "15", From: gstLaunch,
		Notification: "1/2017-Compensation Cess (Rate)"},
	{Code: "9954", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "18", From: gstLaunch},
	{Code: "9965", Component: taxratedomain.ComponentIGST, Business: taxratedomain.BusinessB2B, Rate: "5", From: gstLaunch,
		Notification: "13/2017-Central Tax (Rate)", ReverseCharge: true,
		Conditions: map[string]any{
			taxratedomain.ConditionThresholdLimits: map[string]any{taxratedomain.LimitAmount: 1500},
		}},
}

// EnsureReferenceData inserts the state directory, the reference
// classification tree and its rate set.
// Rows that already exist are left untouched, so reruns are no-ops.
func EnsureReferenceData(ctx context.Context, db *gorm.DB, node *snowflake.Node) (Stats, error) {
	if db == nil {
		return Stats{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return Stats{}, errors.New("seed id generator is required")
	}

	var stats Stats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range referenceStates {
			created, err := ensureStateTx(ctx, tx, item)
			if err != nil {
				return err
			}
			if created {
				stats.States++
			}
		}

		ids := make(map[string]hsndomain.ClassificationCode, len(referenceCodes))
		for _, item := range referenceCodes {
			code, created, err := ensureCodeTx(ctx, tx, node, item, ids)
			if err != nil {
				return err
			}
			ids[code.Code] = code
			if created {
				stats.ClassificationCodes++
			}
		}

		for _, item := range referenceRates {
			created, err := ensureRateTx(ctx, tx, node, item)
			if err != nil {
				return err
			}
			if created {
				stats.RateRecords++
			}
		}
		return nil
	})
	return stats, err
}

func ensureStateTx(ctx context.Context, tx *gorm.DB, item referencedomain.State) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&referencedomain.State{}).Where("code = ?", item.Code).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	item.CreatedAt = time.Now().UTC()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return false, err
	}
	return true, nil
}

func ensureCodeTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, item codeSeed, known map[string]hsndomain.ClassificationCode) (hsndomain.ClassificationCode, bool, error) {
	var code hsndomain.ClassificationCode
	err := tx.WithContext(ctx).Where("code = ?", item.Code).First(&code).Error
	if err == nil {
		return code, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return code, false, err
	}

	now := time.Now().UTC()
	code = hsndomain.ClassificationCode{
		ID:          node.Generate(),
		Code:        item.Code,
		Level:       1,
		Description: item.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.Parent != "" {
		parent, ok := known[item.Parent]
		if !ok {
			return code, false, hsndomain.ErrBrokenParent
		}
		code.ParentID = &parent.ID
		code.Level = parent.Level + 1
	}
	if err := tx.WithContext(ctx).Create(&code).Error; err != nil {
		return code, false, err
	}
	return code, true, nil
}

func ensureRateTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, item rateSeed) (bool, error) {
	var existing taxratedomain.TaxRateRecord
	err := tx.WithContext(ctx).
		Where("classification_code = ? AND component_type = ? AND business_type = ? AND geographical_zone = ? AND effective_from = ?",
			item.Code, item.Component, item.Business, taxratedomain.ZoneAllIndia, item.From).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	now := time.Now().UTC()
	rec := taxratedomain.TaxRateRecord{
		ID:                            node.Generate(),
		ClassificationCode:            item.Code,
		ComponentType:                 item.Component,
		BusinessType:                  item.Business,
		Zone:                          taxratedomain.ZoneAllIndia,
		EffectiveFrom:                 item.From,
		EffectiveTo:                   item.To,
		RatePercentage:                decimal.RequireFromString(item.Rate),
		Active:                        true,
		VersionNumber:                 1,
		IsReverseChargeApplicable:     item.ReverseCharge,
		IsCompositionSchemeApplicable: !item.ReverseCharge,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
	if item.FixedPerUnit != "" {
		rec.FixedAmountPerUnit = decimal.NewNullDecimal(decimal.RequireFromString(item.FixedPerUnit))
	}
	if item.Notification != "" {
		notification := item.Notification
		rec.NotificationNumber = &notification
	}
	if item.Conditions != nil {
		rec.Conditions = datatypes.JSONMap(item.Conditions)
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if err := tx.WithContext(ctx).Create(&rec).Error; err != nil {
		return false, err
	}
	return true, nil
}
