package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Quotation is the client-facing quote. Its NumberOfGuests drives purchase-order generation.
type Quotation struct {
	ID             int        `gorm:"primary_key" json:"id"`
	ClientName     string     `gorm:"size:255;not null" json:"client_name"`
	ClientPhone    string     `gorm:"size:32" json:"client_phone"`
	NumberOfGuests int        `gorm:"not null;default:1" json:"number_of_guests"`
	EventDate      *time.Time `json:"event_date"`
	Notes          string     `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewQuotation struct {
	ClientName     string     `json:"client_name" validate:"required,max=255"`
	ClientPhone    string     `json:"client_phone"`
	NumberOfGuests int        `json:"number_of_guests" validate:"gte=0"`
	EventDate      *time.Time `json:"event_date"`
	Notes          string     `json:"notes"`
}

type Event struct {
	ID            int                `gorm:"primary_key" json:"id"`
	Name          string             `gorm:"size:255;not null" json:"name"`
	EventDate     time.Time          `gorm:"index;not null" json:"event_date"`
	Location      string             `gorm:"size:255" json:"location"`
	QuotationId   *int               `gorm:"index" json:"quotation_id"`
	PlannedDishes []EventPlannedDish `json:"planned_dishes"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type EventPlannedDish struct {
	ID              int             `gorm:"primary_key" json:"id"`
	EventId         int             `gorm:"not null;uniqueIndex:idx_event_recipe" json:"event_id"`
	RecipeId        int             `gorm:"not null;uniqueIndex:idx_event_recipe" json:"recipe_id"`
	PlannedQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"planned_quantity"`
}

type NewEvent struct {
	Name          string                `json:"name" validate:"required,max=255"`
	EventDate     time.Time             `json:"event_date" validate:"required"`
	Location      string                `json:"location"`
	QuotationId   *int                  `json:"quotation_id"`
	PlannedDishes []NewEventPlannedDish `json:"planned_dishes" validate:"dive"`
}

type NewEventPlannedDish struct {
	RecipeId        int             `json:"recipe_id" validate:"required,gt=0"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity"`
}

func CreateQuotation(ctx context.Context, input *NewQuotation) (*Quotation, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhoneNumber(input.ClientPhone, config.PhoneRegion())
	if err != nil {
		return nil, err
	}
	quotation := Quotation{
		ClientName:     strings.TrimSpace(input.ClientName),
		ClientPhone:    phone,
		NumberOfGuests: input.NumberOfGuests,
		EventDate:      input.EventDate,
		Notes:          input.Notes,
	}
	if err := config.GetDB().WithContext(ctx).Create(&quotation).Error; err != nil {
		return nil, utils.WrapRemote("create quotation", err)
	}
	return &quotation, nil
}

func GetQuotation(ctx context.Context, id int) (*Quotation, error) {
	return utils.FetchModel[Quotation](ctx, id)
}

func validatePlannedDishes(tx *gorm.DB, dishes []NewEventPlannedDish) error {
	seen := make(map[int]bool, len(dishes))
	ids := make([]int, 0, len(dishes))
	for _, d := range dishes {
		if seen[d.RecipeId] {
			return utils.NewValidationError("recipe %d is planned twice", d.RecipeId)
		}
		seen[d.RecipeId] = true
		if !d.PlannedQuantity.IsPositive() {
			return utils.NewValidationError("planned quantity for recipe %d must be greater than zero", d.RecipeId)
		}
		ids = append(ids, d.RecipeId)
	}
	return utils.ValidateResourcesId[Recipe](tx, ids)
}

func plannedDishRows(eventId int, dishes []NewEventPlannedDish) []EventPlannedDish {
	rows := make([]EventPlannedDish, 0, len(dishes))
	for _, d := range dishes {
		rows = append(rows, EventPlannedDish{
			EventId:         eventId,
			RecipeId:        d.RecipeId,
			PlannedQuantity: d.PlannedQuantity,
		})
	}
	return rows
}

func CreateEvent(ctx context.Context, input *NewEvent) (result *Event, err error) {
	ctx, span := startSpan(ctx, "CreateEvent")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	event := Event{
		Name:        strings.TrimSpace(input.Name),
		EventDate:   input.EventDate,
		Location:    input.Location,
		QuotationId: input.QuotationId,
	}
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.QuotationId != nil {
			if _, err := utils.FetchModelTx[Quotation](tx, *input.QuotationId); err != nil {
				if errors.Is(err, utils.ErrorRecordNotFound) {
					return utils.NewValidationError("quotation %d not found", *input.QuotationId)
				}
				return err
			}
		}
		if err := validatePlannedDishes(tx, input.PlannedDishes); err != nil {
			return err
		}
		event.PlannedDishes = plannedDishRows(0, input.PlannedDishes)
		return utils.WrapRemote("create event", tx.Create(&event).Error)
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagEvents)
	return GetEvent(ctx, event.ID)
}

func GetEvent(ctx context.Context, id int) (*Event, error) {
	return utils.FetchModel[Event](ctx, id, "PlannedDishes")
}

func ListEvents(ctx context.Context) ([]*Event, error) {
	return utils.CacheList(ctx, utils.CacheTagEvents, "all", func() ([]*Event, error) {
		return utils.FetchAllModels[Event](ctx, "PlannedDishes")
	})
}

// SetEventPlannedDishes replaces the event's planned-dish list.
func SetEventPlannedDishes(ctx context.Context, eventId int, dishes []NewEventPlannedDish) (result *Event, err error) {
	ctx, span := startSpan(ctx, "SetEventPlannedDishes", attribute.Int("event.id", eventId))
	defer func() { endSpan(span, err) }()

	for i := range dishes {
		if err := utils.ValidateStruct(&dishes[i]); err != nil {
			return nil, err
		}
	}
	err = utils.WithEntityLock(ctx, "event", eventId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := utils.FetchModelTx[Event](tx, eventId); err != nil {
				return err
			}
			if err := validatePlannedDishes(tx, dishes); err != nil {
				return err
			}
			if err := tx.Where("event_id = ?", eventId).Delete(&EventPlannedDish{}).Error; err != nil {
				return utils.WrapRemote("delete planned dishes", err)
			}
			rows := plannedDishRows(eventId, dishes)
			if len(rows) == 0 {
				return nil
			}
			return utils.WrapRemote("create planned dishes", tx.Create(&rows).Error)
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagEvents)
	return GetEvent(ctx, eventId)
}

// resolveNumberOfGuests reads the guest count from the event's quotation, defaulting to 1
// when there is no quotation or it holds no positive count.
func resolveNumberOfGuests(tx *gorm.DB, event *Event) (int, error) {
	if event.QuotationId == nil {
		return 1, nil
	}
	var quotation Quotation
	if err := tx.Select("number_of_guests").First(&quotation, *event.QuotationId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, utils.WrapRemote("fetch quotation", err)
	}
	if quotation.NumberOfGuests <= 0 {
		return 1, nil
	}
	return quotation.NumberOfGuests, nil
}
