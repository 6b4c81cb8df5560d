package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoreSettings holds the store identity printed on receipts.
type StoreSettings struct {
	BaseModel
	Name    string  `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Address string  `gorm:"type:varchar(500)" json:"address"`
	Phone   string  `gorm:"type:varchar(50)" json:"phone"`
	Email   string  `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	LogoURL *string `gorm:"type:varchar(500)" json:"logo_url,omitempty"`
	TaxID   *string `gorm:"type:varchar(50)" json:"tax_id,omitempty"`
}

// BusinessHours is one row per day of week (0 = Sunday).
type BusinessHours struct {
	BaseModel
	DayOfWeek int    `gorm:"uniqueIndex;not null" json:"day_of_week" validate:"min=0,max=6"`
	OpenTime  string `gorm:"type:varchar(5);not null" json:"open_time" validate:"hhmm"`
	CloseTime string `gorm:"type:varchar(5);not null" json:"close_time" validate:"hhmm"`
	Closed    bool   `gorm:"not null;default:false" json:"closed"`
}

const (
	PrinterNetwork = "network"
	PrinterUSB     = "usb"
)

type PrinterSettings struct {
	BaseModel
	Name           string  `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	ConnectionType string  `gorm:"type:varchar(20);not null;default:network" json:"connection_type" validate:"oneof=network usb"`
	IPAddress      *string `gorm:"type:varchar(45)" json:"ip_address,omitempty" validate:"omitempty,ip"`
	Port           int     `gorm:"not null;default:9100" json:"port" validate:"min=1,max=65535"`
	PaperWidth     int     `gorm:"not null;default:80" json:"paper_width" validate:"oneof=58 80"`
	AutoPrint      bool    `gorm:"not null;default:false" json:"auto_print"`
	Enabled        bool    `gorm:"not null;default:false" json:"enabled"`
}

type GeneralSettings struct {
	BaseModel
	Language         string          `gorm:"type:varchar(10);not null;default:es" json:"language" validate:"required"`
	Timezone         string          `gorm:"type:varchar(64);not null;default:UTC" json:"timezone" validate:"required,timezone"`
	Currency         string          `gorm:"type:varchar(3);not null;default:USD" json:"currency" validate:"required,len=3"`
	TaxPercentage    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tax_percentage"`
	DateFormat       string          `gorm:"type:varchar(20);not null;default:'DD/MM/YYYY'" json:"date_format"`
	AutoAcceptOrders bool            `gorm:"not null;default:false" json:"auto_accept_orders"`
	ReceiptFooter    *string         `gorm:"type:text" json:"receipt_footer,omitempty"`
}

// Fixed ids of the singleton settings rows. Concurrent first reads insert the
// same key, so only one row survives.
var (
	StoreSettingsID   = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	PrinterSettingsID = uuid.MustParse("00000000-0000-4000-8000-000000000002")
	GeneralSettingsID = uuid.MustParse("00000000-0000-4000-8000-000000000003")
)

// Default settings rows created on first read.
func DefaultStoreSettings() StoreSettings {
	return StoreSettings{BaseModel: BaseModel{ID: StoreSettingsID}, Name: "My Store"}
}

func DefaultPrinterSettings() PrinterSettings {
	return PrinterSettings{BaseModel: BaseModel{ID: PrinterSettingsID}, Name: "Receipt printer", ConnectionType: PrinterNetwork, Port: 9100, PaperWidth: 80}
}

func DefaultGeneralSettings() GeneralSettings {
	return GeneralSettings{
		BaseModel:     BaseModel{ID: GeneralSettingsID},
		Language:      "es",
		Timezone:      "UTC",
		Currency:      "USD",
		TaxPercentage: decimal.Zero,
		DateFormat:    "DD/MM/YYYY",
	}
}

// DefaultWeek returns seven open days, 09:00 - 22:00.
func DefaultWeek() []BusinessHours {
	week := make([]BusinessHours, 7)
	for d := range week {
		week[d] = BusinessHours{DayOfWeek: d, OpenTime: "09:00", CloseTime: "22:00"}
	}
	return week
}
