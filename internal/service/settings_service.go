package service

import (
	"context"
	"errors"
	"time"

	"go-pos-store/internal/cache"
	"go-pos-store/internal/client"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	keyStoreSettings   = "settings:store"
	keyPrinterSettings = "settings:printer"
	keyGeneralSettings = "settings:general"
	keyBusinessHours   = "settings:hours"
)

type SettingsService interface {
	Store(ctx context.Context) (*model.StoreSettings, error)
	UpdateStore(ctx context.Context, req *StoreSettingsRequest) (*model.StoreSettings, error)
	Printer(ctx context.Context) (*model.PrinterSettings, error)
	UpdatePrinter(ctx context.Context, req *PrinterSettingsRequest) (*model.PrinterSettings, error)
	General(ctx context.Context) (*model.GeneralSettings, error)
	UpdateGeneral(ctx context.Context, req *GeneralSettingsRequest) (*model.GeneralSettings, error)
	Hours(ctx context.Context) ([]model.BusinessHours, error)
	UpdateHours(ctx context.Context, day int, req *BusinessHoursRequest) (*model.BusinessHours, error)
	// IsOpen reports whether the store is open at the given instant, in the
	// store's time zone.
	IsOpen(ctx context.Context, at time.Time) (bool, error)
	Location(ctx context.Context) (*time.Location, error)
}

type StoreSettingsRequest struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Address string  `json:"address" validate:"max=500"`
	Phone   string  `json:"phone" validate:"max=50"`
	Email   string  `json:"email" validate:"omitempty,email"`
	LogoURL *string `json:"logo_url" validate:"omitempty,url"`
	TaxID   *string `json:"tax_id" validate:"omitempty,max=50"`
}

type PrinterSettingsRequest struct {
	Name           string  `json:"name" validate:"required,max=100"`
	ConnectionType string  `json:"connection_type" validate:"required,oneof=network usb"`
	IPAddress      *string `json:"ip_address" validate:"omitempty,ip"`
	Port           int     `json:"port" validate:"min=1,max=65535"`
	PaperWidth     int     `json:"paper_width" validate:"oneof=58 80"`
	AutoPrint      bool    `json:"auto_print"`
	Enabled        bool    `json:"enabled"`
}

type GeneralSettingsRequest struct {
	Language         string          `json:"language" validate:"required,max=10"`
	Timezone         string          `json:"timezone" validate:"required,timezone"`
	Currency         string          `json:"currency" validate:"required,len=3"`
	TaxPercentage    decimal.Decimal `json:"tax_percentage"`
	DateFormat       string          `json:"date_format" validate:"required,max=20"`
	AutoAcceptOrders bool            `json:"auto_accept_orders"`
	ReceiptFooter    *string         `json:"receipt_footer"`
}

type BusinessHoursRequest struct {
	OpenTime  string `json:"open_time" validate:"hhmm"`
	CloseTime string `json:"close_time" validate:"hhmm"`
	Closed    bool   `json:"closed"`
}

type settingsService struct {
	db    *client.Client
	cache cache.Cache
	log   *zap.Logger
}

func NewSettingsService(db *client.Client, c cache.Cache, log *zap.Logger) SettingsService {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &settingsService{db: db, cache: c, log: log.Named("settings")}
}

// cached reads key from the cache, falling back to load and filling the cache.
// Cache failures only cost a trip to the database.
func cached[T any](ctx context.Context, s *settingsService, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	err := s.cache.GetJSON(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func (s *settingsService) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *settingsService) Store(ctx context.Context) (*model.StoreSettings, error) {
	return cached(ctx, s, keyStoreSettings, s.db.StoreSettings.Current)
}

func (s *settingsService) UpdateStore(ctx context.Context, req *StoreSettingsRequest) (*model.StoreSettings, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	out, err := s.db.StoreSettings.Save(ctx, query.Data{
		"name":     req.Name,
		"address":  req.Address,
		"phone":    req.Phone,
		"email":    req.Email,
		"logo_url": req.LogoURL,
		"tax_id":   req.TaxID,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyStoreSettings)
	return out, nil
}

func (s *settingsService) Printer(ctx context.Context) (*model.PrinterSettings, error) {
	return cached(ctx, s, keyPrinterSettings, s.db.PrinterSettings.Current)
}

func (s *settingsService) UpdatePrinter(ctx context.Context, req *PrinterSettingsRequest) (*model.PrinterSettings, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ConnectionType == model.PrinterNetwork && req.Enabled && (req.IPAddress == nil || *req.IPAddress == "") {
		return nil, invalid("an enabled network printer needs an ip address")
	}
	out, err := s.db.PrinterSettings.Save(ctx, query.Data{
		"name":            req.Name,
		"connection_type": req.ConnectionType,
		"ip_address":      req.IPAddress,
		"port":            req.Port,
		"paper_width":     req.PaperWidth,
		"auto_print":      req.AutoPrint,
		"enabled":         req.Enabled,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyPrinterSettings)
	return out, nil
}

func (s *settingsService) General(ctx context.Context) (*model.GeneralSettings, error) {
	return cached(ctx, s, keyGeneralSettings, s.db.GeneralSettings.Current)
}

func (s *settingsService) UpdateGeneral(ctx context.Context, req *GeneralSettingsRequest) (*model.GeneralSettings, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.TaxPercentage.IsNegative() || req.TaxPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, invalid("tax_percentage must be between 0 and 100")
	}
	out, err := s.db.GeneralSettings.Save(ctx, query.Data{
		"language":           req.Language,
		"timezone":           req.Timezone,
		"currency":           req.Currency,
		"tax_percentage":     req.TaxPercentage,
		"date_format":        req.DateFormat,
		"auto_accept_orders": req.AutoAcceptOrders,
		"receipt_footer":     req.ReceiptFooter,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyGeneralSettings)
	return out, nil
}

func (s *settingsService) Hours(ctx context.Context) ([]model.BusinessHours, error) {
	return cached(ctx, s, keyBusinessHours, s.db.BusinessHours.Week)
}

func (s *settingsService) UpdateHours(ctx context.Context, day int, req *BusinessHoursRequest) (*model.BusinessHours, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.db.BusinessHours.ForDay(ctx, day); err != nil {
		return nil, err
	}
	out, err := s.db.BusinessHours.Update(ctx, query.Is("day_of_week", day), query.Data{
		"open_time":  req.OpenTime,
		"close_time": req.CloseTime,
		"closed":     req.Closed,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, keyBusinessHours)
	return out, nil
}

func (s *settingsService) Location(ctx context.Context) (*time.Location, error) {
	g, err := s.General(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		s.log.Warn("unknown time zone, using UTC", zap.String("timezone", g.Timezone))
		return time.UTC, nil
	}
	return loc, nil
}

func (s *settingsService) IsOpen(ctx context.Context, at time.Time) (bool, error) {
	loc, err := s.Location(ctx)
	if err != nil {
		return false, err
	}
	week, err := s.Hours(ctx)
	if err != nil {
		return false, err
	}
	return openAt(week, at.In(loc)), nil
}

// openAt checks local against the weekly schedule. A day whose close time is
// not after its open time runs past midnight into the next day.
func openAt(week []model.BusinessHours, local time.Time) bool {
	byDay := make(map[int]model.BusinessHours, len(week))
	for _, h := range week {
		byDay[h.DayOfWeek] = h
	}
	now := local.Format("15:04")
	day := int(local.Weekday())

	if h, ok := byDay[day]; ok && !h.Closed {
		if h.CloseTime > h.OpenTime {
			if now >= h.OpenTime && now < h.CloseTime {
				return true
			}
		} else if now >= h.OpenTime {
			return true
		}
	}
	prev, ok := byDay[(day+6)%7]
	return ok && !prev.Closed && prev.CloseTime <= prev.OpenTime && now < prev.CloseTime
}
