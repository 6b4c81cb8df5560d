package repository

import (
	"context"

	"go-pos-store/internal/dberr"
	"go-pos-store/internal/model"
	"go-pos-store/internal/query"
)

// SettingsRepository serves a single-row settings table.
type SettingsRepository[T any] interface {
	Repository[T]
	// Current returns the settings row, creating it from defaults on first use.
	Current(ctx context.Context) (*T, error)
	// Save applies data to the settings row.
	Save(ctx context.Context, data query.Data) (*T, error)
}

type settingsRepo[T any] struct {
	*Delegate[T]
	defaults func() T
}

func NewStoreSettingsRepo(src Source, chain *Chain) SettingsRepository[model.StoreSettings] {
	return &settingsRepo[model.StoreSettings]{NewDelegate[model.StoreSettings](src, chain), model.DefaultStoreSettings}
}

func NewPrinterSettingsRepo(src Source, chain *Chain) SettingsRepository[model.PrinterSettings] {
	return &settingsRepo[model.PrinterSettings]{NewDelegate[model.PrinterSettings](src, chain), model.DefaultPrinterSettings}
}

func NewGeneralSettingsRepo(src Source, chain *Chain) SettingsRepository[model.GeneralSettings] {
	return &settingsRepo[model.GeneralSettings]{NewDelegate[model.GeneralSettings](src, chain), model.DefaultGeneralSettings}
}

func (r *settingsRepo[T]) Current(ctx context.Context) (*T, error) {
	row, err := r.FindFirst(ctx, query.FindArgs{OrderBy: []query.OrderBy{query.Asc("created_at")}})
	if err != nil || row != nil {
		return row, err
	}
	// defaults carry a fixed primary key; a concurrent insert is skipped
	if _, err := r.CreateMany(ctx, []T{r.defaults()}, true); err != nil {
		return nil, err
	}
	return r.FindFirstOrThrow(ctx, query.FindArgs{OrderBy: []query.OrderBy{query.Asc("created_at")}})
}

func (r *settingsRepo[T]) Save(ctx context.Context, data query.Data) (*T, error) {
	current, err := r.Current(ctx)
	if err != nil {
		return nil, err
	}
	key, err := r.KeyWhere(ctx, current)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, key, data)
}

type BusinessHoursRepository interface {
	Repository[model.BusinessHours]
	// Week returns the seven rows ordered from Sunday, seeding missing days.
	Week(ctx context.Context) ([]model.BusinessHours, error)
	ForDay(ctx context.Context, day int) (*model.BusinessHours, error)
}

type businessHoursRepo struct {
	*Delegate[model.BusinessHours]
}

func NewBusinessHoursRepo(src Source, chain *Chain) BusinessHoursRepository {
	return &businessHoursRepo{NewDelegate[model.BusinessHours](src, chain)}
}

func (r *businessHoursRepo) Week(ctx context.Context) ([]model.BusinessHours, error) {
	n, err := r.Count(ctx, query.Where{})
	if err != nil {
		return nil, err
	}
	if n < 7 {
		if _, err := r.CreateMany(ctx, model.DefaultWeek(), true); err != nil {
			return nil, err
		}
	}
	return r.FindMany(ctx, query.FindArgs{OrderBy: []query.OrderBy{query.Asc("day_of_week")}})
}

func (r *businessHoursRepo) ForDay(ctx context.Context, day int) (*model.BusinessHours, error) {
	if day < 0 || day > 6 {
		return nil, dberr.Invalid(r.Name(), "day_of_week", "day must be between 0 and 6")
	}
	if _, err := r.Week(ctx); err != nil {
		return nil, err
	}
	return r.FindUniqueOrThrow(ctx, query.Is("day_of_week", day))
}
