package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/kv"
)

// Draft field keys, one storage entry each
const (
	KeyProductFormData     = "productFormData"
	KeyPrice               = "price"
	KeyDiscount            = "discount"
	KeyDiscountType        = "discountType"
	KeyProductVariants     = "productVariants"
	KeyProductCombinations = "productCombinations"
	KeyWizardStep          = "wizardStep"
)

// DraftKeys lists every key a draft may hold
var DraftKeys = []string{
	KeyProductFormData,
	KeyPrice,
	KeyDiscount,
	KeyDiscountType,
	KeyProductVariants,
	KeyProductCombinations,
	KeyWizardStep,
}

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrUnknownKey    = errors.New("unknown draft key")
)

// DraftRepository is the draft store: field-level persistence of an
// in-progress wizard run, namespaced by draft id
type DraftRepository interface {
	SetField(ctx context.Context, draftID, key string, value interface{}) error
	GetField(ctx context.Context, draftID, key string, dest interface{}) (bool, error)
	ClearDraft(ctx context.Context, draftID string) error
	Exists(ctx context.Context, draftID string) (bool, error)
	Load(ctx context.Context, draftID, defaultCategory string) (*domain.DraftState, error)
	Save(ctx context.Context, state *domain.DraftState) error
	Keys(draftID string) []string
}

type draftRepository struct {
	store kv.Store
}

// NewDraftRepository creates a new instance of DraftRepository
func NewDraftRepository(store kv.Store) DraftRepository {
	return &draftRepository{store: store}
}

func draftKey(draftID, key string) string {
	return "draft:" + draftID + ":" + key
}

func knownKey(key string) bool {
	for _, k := range DraftKeys {
		if k == key {
			return true
		}
	}
	return false
}

// SetField writes one field immediately
func (r *draftRepository) SetField(ctx context.Context, draftID, key string, value interface{}) error {
	if !knownKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode draft field %s: %w", key, err)
	}

	if err := r.store.Set(ctx, draftKey(draftID, key), raw); err != nil {
		return fmt.Errorf("failed to write draft field %s: %w", key, err)
	}
	return nil
}

// GetField decodes the last written value of key into dest. It reports false
// and leaves dest untouched when the field was never written.
func (r *draftRepository) GetField(ctx context.Context, draftID, key string, dest interface{}) (bool, error) {
	if !knownKey(key) {
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	raw, err := r.store.Get(ctx, draftKey(draftID, key))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read draft field %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode draft field %s: %w", key, err)
	}
	return true, nil
}

// ClearDraft removes every known draft key
func (r *draftRepository) ClearDraft(ctx context.Context, draftID string) error {
	if err := r.store.Delete(ctx, r.Keys(draftID)...); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// Exists reports whether the draft was started and not yet cleared
func (r *draftRepository) Exists(ctx context.Context, draftID string) (bool, error) {
	var step int
	return r.GetField(ctx, draftID, KeyWizardStep, &step)
}

// Load reads every draft key, applying form defaults for absent fields
func (r *draftRepository) Load(ctx context.Context, draftID, defaultCategory string) (*domain.DraftState, error) {
	state := domain.NewDraftState(draftID, defaultCategory)

	found, err := r.GetField(ctx, draftID, KeyWizardStep, &state.Step)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDraftNotFound
	}

	var form domain.ProductForm
	if ok, err := r.GetField(ctx, draftID, KeyProductFormData, &form); err != nil {
		return nil, err
	} else if ok {
		if form.Category == "" {
			form.Category = state.Form.Category
		}
		state.Form = form
	}

	if _, err := r.GetField(ctx, draftID, KeyPrice, &state.Price); err != nil {
		return nil, err
	}
	if _, err := r.GetField(ctx, draftID, KeyDiscount, &state.Discount); err != nil {
		return nil, err
	}
	if _, err := r.GetField(ctx, draftID, KeyDiscountType, &state.DiscountType); err != nil {
		return nil, err
	}
	if _, err := r.GetField(ctx, draftID, KeyProductVariants, &state.Variants); err != nil {
		return nil, err
	}
	if _, err := r.GetField(ctx, draftID, KeyProductCombinations, &state.Combinations); err != nil {
		return nil, err
	}

	return state, nil
}

// Save writes every field of state in one batch
func (r *draftRepository) Save(ctx context.Context, state *domain.DraftState) error {
	fields := map[string]interface{}{
		KeyWizardStep:          state.Step,
		KeyProductFormData:     state.Form,
		KeyDiscountType:        state.DiscountType,
		KeyProductVariants:     state.Variants,
		KeyProductCombinations: state.Combinations,
	}
	batch := kv.NewBatch()
	if state.Price != nil {
		fields[KeyPrice] = state.Price
	} else {
		batch.Delete(draftKey(state.ID, KeyPrice))
	}
	if state.Discount != nil {
		fields[KeyDiscount] = state.Discount
	} else {
		batch.Delete(draftKey(state.ID, KeyDiscount))
	}

	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode draft field %s: %w", key, err)
		}
		batch.Set(draftKey(state.ID, key), raw)
	}

	if err := r.store.Apply(ctx, batch); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Keys returns the storage keys of every draft field
func (r *draftRepository) Keys(draftID string) []string {
	keys := make([]string, len(DraftKeys))
	for i, k := range DraftKeys {
		keys[i] = draftKey(draftID, k)
	}
	return keys
}
