package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meudinheiro/meudinheiro/internal/model"
)

type accountRow struct {
	ID                  int64 `gorm:"primaryKey;autoIncrement"`
	UserID              int64 `gorm:"index;not null"`
	Name                string
	Type                string
	Institution         string
	InstitutionType     string
	OpeningBalance      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	HideFromNetWorth    bool
	Color               string
	SafetyBalance       decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	OverdraftLimit      decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	OverdraftExpiry     *time.Time          `gorm:"type:date"`
	CreditLimit         decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	StatementClosingDay int
	StatementDueDay     int
}

func (accountRow) TableName() string { return "accounts" }

func newAccountRow(a model.Account) accountRow {
	return accountRow{
		ID:                  a.ID,
		UserID:              a.UserID,
		Name:                a.Name,
		Type:                string(a.Type),
		Institution:         a.Institution,
		InstitutionType:     a.InstitutionType,
		OpeningBalance:      a.OpeningBalance,
		HideFromNetWorth:    a.HideFromNetWorth,
		Color:               a.Color,
		SafetyBalance:       a.SafetyBalance,
		OverdraftLimit:      a.OverdraftLimit,
		OverdraftExpiry:     a.OverdraftExpiry,
		CreditLimit:         a.CreditLimit,
		StatementClosingDay: a.StatementClosingDay,
		StatementDueDay:     a.StatementDueDay,
	}
}

func (r accountRow) model() model.Account {
	var expiry *time.Time
	if r.OverdraftExpiry != nil {
		d := model.Day(*r.OverdraftExpiry)
		expiry = &d
	}
	return model.Account{
		ID:                  r.ID,
		UserID:              r.UserID,
		Name:                r.Name,
		Type:                model.AccountType(r.Type),
		Institution:         r.Institution,
		InstitutionType:     r.InstitutionType,
		OpeningBalance:      r.OpeningBalance,
		HideFromNetWorth:    r.HideFromNetWorth,
		Color:               r.Color,
		SafetyBalance:       r.SafetyBalance,
		OverdraftLimit:      r.OverdraftLimit,
		OverdraftExpiry:     expiry,
		CreditLimit:         r.CreditLimit,
		StatementClosingDay: r.StatementClosingDay,
		StatementDueDay:     r.StatementDueDay,
	}
}

type transactionRow struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Kind            string          `gorm:"not null"`
	Day             time.Time       `gorm:"type:date;index:transactions_dedupe,priority:2"`
	OccurredAt      time.Time
	Description     string
	Location        string
	AccountID       int64      `gorm:"index;not null"`
	Account         accountRow `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT"`
	UserID          int64      `gorm:"index:transactions_dedupe,priority:1;not null"`
	Tag             string
	CategoryID      int64
	SubcategoryID   int64
	Ignored         bool
	Settled         bool
	Automatic       bool
	Recurring       bool
	RecurrenceGroup string
	RecordType      string
	CreatedAt       time.Time
}

func (transactionRow) TableName() string { return "transactions" }

func newTransactionRow(t model.Transaction) transactionRow {
	return transactionRow{
		ID:              t.ID,
		Amount:          t.Amount.Round(2),
		Kind:            string(t.Kind),
		Day:             model.Day(t.Date),
		OccurredAt:      t.Date,
		Description:     t.Description,
		Location:        t.Location,
		AccountID:       t.AccountID,
		UserID:          t.UserID,
		Tag:             t.Tag,
		CategoryID:      t.CategoryID,
		SubcategoryID:   t.SubcategoryID,
		Ignored:         t.Ignore,
		Settled:         t.Settled,
		Automatic:       t.Automatic,
		Recurring:       t.Recurring,
		RecurrenceGroup: t.RecurrenceGroup,
		RecordType:      t.RecordType,
		CreatedAt:       t.CreatedAt,
	}
}

func (r transactionRow) model() model.Transaction {
	return model.Transaction{
		ID:              r.ID,
		Amount:          r.Amount,
		Kind:            model.Kind(r.Kind),
		Date:            r.OccurredAt.UTC(),
		Description:     r.Description,
		Location:        r.Location,
		AccountID:       r.AccountID,
		UserID:          r.UserID,
		Tag:             r.Tag,
		CategoryID:      r.CategoryID,
		SubcategoryID:   r.SubcategoryID,
		Ignore:          r.Ignored,
		Settled:         r.Settled,
		Automatic:       r.Automatic,
		Recurring:       r.Recurring,
		RecurrenceGroup: r.RecurrenceGroup,
		RecordType:      r.RecordType,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

type ruleRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"uniqueIndex:rules_user_keyword;not null"`
	Keyword   string `gorm:"uniqueIndex:rules_user_keyword;not null"`
	Tag       string `gorm:"not null"`
	CreatedAt time.Time
}

func (ruleRow) TableName() string { return "rules" }

func (r ruleRow) model() model.Rule {
	return model.Rule{ID: r.ID, UserID: r.UserID, Keyword: r.Keyword, Tag: r.Tag, CreatedAt: r.CreatedAt.UTC()}
}

type categoryRow struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	UserID int64  `gorm:"uniqueIndex:categories_user_name;not null"`
	Name   string `gorm:"uniqueIndex:categories_user_name;not null"`
	Color  string
	Icon   string
}

func (categoryRow) TableName() string { return "categories" }

func (r categoryRow) model() model.Category {
	return model.Category{ID: r.ID, UserID: r.UserID, Name: r.Name, Color: r.Color, Icon: r.Icon}
}
