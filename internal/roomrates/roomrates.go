// Package roomrates holds the canonical per-day tariff for each room type.
// The table ships with compiled-in defaults and can be overridden by a
// watched config file, so tariff revisions do not require a redeploy.
package roomrates

import (
	"errors"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Rates are the four per-day cost components of one room type.
type Rates struct {
	Bed     float64 `mapstructure:"bed" json:"bed"`
	Nursing float64 `mapstructure:"nursing" json:"nursing"`
	RMO     float64 `mapstructure:"rmo" json:"rmo"`
	Doctor  float64 `mapstructure:"doctor" json:"doctor"`
}

// Sum is the canonical combined per-day rate.
func (r Rates) Sum() float64 {
	return r.Bed + r.Nursing + r.RMO + r.Doctor
}

// Table maps room types to their canonical rates.
type Table map[domain.RoomType]Rates

// Defaults is the compiled-in tariff.
func Defaults() Table {
	return Table{
		domain.RoomGeneralWard: {Bed: 1000, Nursing: 200, RMO: 100, Doctor: 500},
		domain.RoomSemiPrivate: {Bed: 1800, Nursing: 300, RMO: 150, Doctor: 600},
		domain.RoomPrivate:     {Bed: 2500, Nursing: 400, RMO: 200, Doctor: 800},
		domain.RoomDeluxe:      {Bed: 3500, Nursing: 500, RMO: 250, Doctor: 1000},
		domain.RoomICU:         {Bed: 3000, Nursing: 800, RMO: 300, Doctor: 1000},
		domain.RoomICCU:        {Bed: 3500, Nursing: 900, RMO: 350, Doctor: 1200},
		domain.RoomNICU:        {Bed: 3200, Nursing: 850, RMO: 300, Doctor: 1100},
	}
}

// Holder exposes the current table and hot-reloads it when the backing
// file changes.
type Holder struct {
	current atomic.Value // holds Table
}

// NewHolder loads the tariff file named by cfg.RoomRatesPath when present,
// otherwise serves the defaults.
func NewHolder(cfg config.Config, log *zap.Logger) (*Holder, error) {
	holder := &Holder{}
	holder.current.Store(Defaults())

	if cfg.RoomRatesPath == "" {
		return holder, nil
	}

	log = log.Named("roomrates")

	v := viper.New()
	v.SetConfigFile(cfg.RoomRatesPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	table, err := parseTable(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(table)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := parseTable(v)
		if err != nil {
			log.Warn("tariff reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("tariff reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Get returns the current table.
func (h *Holder) Get() Table {
	return h.current.Load().(Table)
}

// For returns the canonical rates for a room type, falling back to the
// general ward tariff for unknown types.
func (h *Holder) For(rt domain.RoomType) Rates {
	table := h.Get()
	if rates, ok := table[rt]; ok {
		return rates
	}
	return table[domain.RoomGeneralWard]
}

func parseTable(v *viper.Viper) (Table, error) {
	raw := map[string]Rates{}
	if err := v.UnmarshalKey("room_rates", &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("room_rates cannot be empty")
	}

	table := Defaults()
	for name, rates := range raw {
		if rates.Sum() <= 0 {
			return nil, errors.New("room_rates entries need a positive per-day total")
		}
		table[domain.RoomType(name)] = rates
	}
	return table, nil
}

// Module provides the tariff holder.
var Module = fx.Module("roomrates",
	fx.Provide(NewHolder),
)
