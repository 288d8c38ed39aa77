package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"catalog-wizard/internal/combination"
	"catalog-wizard/internal/domain"
	"catalog-wizard/internal/kv"
	"catalog-wizard/internal/repository"
	"catalog-wizard/internal/upload"
	"catalog-wizard/internal/wizard"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DescriptionInput holds the first step fields
type DescriptionInput struct {
	Name     string
	Category string
	Brand    string
}

// CombinationUpdate patches one row of the SKU table; nil fields are kept
type CombinationUpdate struct {
	SKU      *string
	InStock  *bool
	Quantity *string
}

// PriceInput holds the last step fields
type PriceInput struct {
	Price        *decimal.Decimal
	Discount     *decimal.Decimal
	DiscountType domain.DiscountType
}

// DraftView is a draft plus what the wizard needs to render its current step
type DraftView struct {
	Draft     *domain.DraftState `json:"draft"`
	Route     string             `json:"route"`
	Valid     bool               `json:"valid"`
	SKUErrors map[string]string  `json:"skuErrors,omitempty"`
}

// StepResult reports a navigation action
type StepResult struct {
	Step      wizard.Step     `json:"step"`
	Route     string          `json:"route"`
	Moved     bool            `json:"moved"`
	Exited    bool            `json:"exited,omitempty"`
	Confirmed bool            `json:"confirmed,omitempty"`
	Product   *domain.Product `json:"product,omitempty"`
}

// DraftService is the wizard controller: it owns each DraftState and every
// write path of the four steps.
type DraftService interface {
	Start(ctx context.Context) (*domain.DraftState, error)
	Get(ctx context.Context, draftID string) (*DraftView, error)
	Cancel(ctx context.Context, draftID string) error

	SaveDescription(ctx context.Context, draftID string, in DescriptionInput) (*domain.DraftState, error)
	AttachImage(ctx context.Context, draftID string, r io.Reader, f upload.File) (*domain.DraftState, error)

	SaveVariants(ctx context.Context, draftID string, variants []domain.Variant) (*domain.DraftState, error)
	AddVariant(ctx context.Context, draftID string) (*domain.DraftState, error)
	DeleteVariant(ctx context.Context, draftID string, index int) (*domain.DraftState, error)
	AddVariantValue(ctx context.Context, draftID string, index int, value string) (*domain.DraftState, error)
	RemoveVariantValue(ctx context.Context, draftID string, index int, value string) (*domain.DraftState, error)

	UpdateCombination(ctx context.Context, draftID, combinationID string, in CombinationUpdate) (*domain.DraftState, error)
	SavePrice(ctx context.Context, draftID string, in PriceInput) (*domain.DraftState, error)

	Advance(ctx context.Context, draftID string) (*StepResult, error)
	Retreat(ctx context.Context, draftID string) (*StepResult, error)
	Confirm(ctx context.Context, draftID string) (*StepResult, error)

	FinalizeDraft(ctx context.Context, draftID string) (*domain.Product, error)
}

type draftService struct {
	drafts   repository.DraftRepository
	catalog  repository.CatalogRepository
	uploader upload.Uploader
	newID    combination.IDFunc
	logger   *zap.Logger
}

// NewDraftService creates a new instance of DraftService
func NewDraftService(
	drafts repository.DraftRepository,
	catalog repository.CatalogRepository,
	uploader upload.Uploader,
	logger *zap.Logger,
) DraftService {
	return &draftService{
		drafts:   drafts,
		catalog:  catalog,
		uploader: uploader,
		newID:    combination.NewID,
		logger:   logger,
	}
}

// Assemble builds the product a draft describes. It performs no validation.
func Assemble(state *domain.DraftState) domain.Product {
	image := state.Form.ImageURL
	if image == "" {
		image = domain.PlaceholderImageURL
	}

	price := decimal.Zero
	if state.Price != nil {
		price = *state.Price
	}

	combinations := make([]domain.Combination, len(state.Combinations))
	for i, c := range state.Combinations {
		if c.Quantity != nil && *c.Quantity == "" {
			c.Quantity = nil
		}
		combinations[i] = c
	}

	variants := state.Variants
	if variants == nil {
		variants = []domain.Variant{}
	}

	return domain.Product{
		Name:         state.Form.Name,
		Category:     state.Form.Category,
		Brand:        state.Form.Brand,
		Image:        image,
		Variants:     variants,
		Combinations: combinations,
		Price:        price,
		Discount:     state.ResolvedDiscount(),
	}
}

// StepValid reports whether the form of step is complete for state
func StepValid(state *domain.DraftState, step wizard.Step) bool {
	switch step {
	case wizard.StepDescription:
		return strings.TrimSpace(state.Form.Name) != "" && strings.TrimSpace(state.Form.Brand) != ""
	case wizard.StepVariants:
		return len(combination.Qualifying(state.Variants)) > 0
	case wizard.StepCombinations:
		return combination.Valid(state.Combinations)
	case wizard.StepPrice:
		return state.Price != nil && state.Price.IsPositive()
	}
	return false
}

func (s *draftService) defaultCategory(ctx context.Context) string {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		s.logger.Warn("Could not read categories for draft defaults", zap.Error(err))
		return ""
	}
	if len(categories) == 0 {
		return ""
	}
	return categories[0].Name
}

// load reads the draft for editing. An unavailable store yields an empty
// draft instead of an error.
func (s *draftService) load(ctx context.Context, draftID string) (*domain.DraftState, error) {
	state, err := s.drafts.Load(ctx, draftID, s.defaultCategory(ctx))
	if err != nil {
		if errors.Is(err, kv.ErrUnavailable) {
			s.logger.Warn("Draft storage unavailable, treating draft as empty",
				zap.String("draft_id", draftID),
				zap.Error(err),
			)
			state = domain.NewDraftState(draftID, "")
		} else {
			return nil, err
		}
	}

	if len(state.Variants) == 0 {
		state.Variants = []domain.Variant{{Name: "", Values: []string{}}}
	}
	if len(state.Combinations) == 0 {
		state.Combinations = combination.Initial(state.Variants, s.newID)
	}
	return state, nil
}

// setField writes one draft field, logging instead of failing when the store
// is unavailable.
func (s *draftService) setField(ctx context.Context, draftID, key string, value interface{}) error {
	err := s.drafts.SetField(ctx, draftID, key, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, kv.ErrUnavailable) {
		s.logger.Warn("Draft storage unavailable, field not persisted",
			zap.String("draft_id", draftID),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	return err
}

func (s *draftService) Start(ctx context.Context) (*domain.DraftState, error) {
	state := domain.NewDraftState(uuid.NewString(), s.defaultCategory(ctx))
	state.Combinations = combination.Initial(state.Variants, s.newID)

	if err := s.drafts.Save(ctx, state); err != nil {
		if !errors.Is(err, kv.ErrUnavailable) {
			return nil, fmt.Errorf("failed to start draft: %w", err)
		}
		s.logger.Warn("Draft storage unavailable, draft kept in memory only",
			zap.String("draft_id", state.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("Draft started", zap.String("draft_id", state.ID))
	return state, nil
}

func (s *draftService) Get(ctx context.Context, draftID string) (*DraftView, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	step := wizard.Step(state.Step)
	view := &DraftView{
		Draft: state,
		Route: wizard.Route(step),
		Valid: StepValid(state, step),
	}
	if step == wizard.StepCombinations {
		view.SKUErrors = make(map[string]string)
		for id, problem := range combination.Validate(state.Combinations) {
			view.SKUErrors[id] = problem.Error()
		}
	}
	return view, nil
}

func (s *draftService) Cancel(ctx context.Context, draftID string) error {
	if err := s.drafts.ClearDraft(ctx, draftID); err != nil {
		if !errors.Is(err, kv.ErrUnavailable) {
			return err
		}
		s.logger.Warn("Draft storage unavailable, draft not cleared",
			zap.String("draft_id", draftID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *draftService) SaveDescription(ctx context.Context, draftID string, in DescriptionInput) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	state.Form.Name = strings.TrimSpace(in.Name)
	state.Form.Brand = strings.TrimSpace(in.Brand)
	if category := strings.TrimSpace(in.Category); category != "" {
		state.Form.Category = category
	}

	if err := s.setField(ctx, draftID, repository.KeyProductFormData, state.Form); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *draftService) AttachImage(ctx context.Context, draftID string, r io.Reader, f upload.File) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if state.ImageUploaded() {
		return nil, ErrImageAlreadyUploaded
	}

	url, err := s.uploader.Upload(ctx, r, f)
	if err != nil {
		s.logger.Warn("Image upload failed",
			zap.String("draft_id", draftID),
			zap.String("filename", f.Filename),
			zap.Error(err),
		)
		return nil, err
	}

	state.Form.ImageURL = url
	if err := s.setField(ctx, draftID, repository.KeyProductFormData, state.Form); err != nil {
		return nil, err
	}
	return state, nil
}

// writeVariants persists variants together with the reconciled SKU table
func (s *draftService) writeVariants(ctx context.Context, state *domain.DraftState) (*domain.DraftState, error) {
	if err := combination.CheckSize(state.Variants); err != nil {
		return nil, err
	}
	state.Combinations = combination.Reconcile(state.Variants, state.Combinations, s.newID)

	if err := s.setField(ctx, state.ID, repository.KeyProductVariants, state.Variants); err != nil {
		return nil, err
	}
	if err := s.setField(ctx, state.ID, repository.KeyProductCombinations, state.Combinations); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *draftService) SaveVariants(ctx context.Context, draftID string, variants []domain.Variant) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	state.Variants = combination.NormalizeVariants(variants)
	if len(state.Variants) == 0 {
		state.Variants = []domain.Variant{{Name: "", Values: []string{}}}
	}
	return s.writeVariants(ctx, state)
}

func (s *draftService) AddVariant(ctx context.Context, draftID string) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	state.Variants = append(state.Variants, domain.Variant{Name: "", Values: []string{}})
	if err := s.setField(ctx, draftID, repository.KeyProductVariants, state.Variants); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *draftService) DeleteVariant(ctx context.Context, draftID string, index int) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	state.Variants, err = combination.DeleteVariant(state.Variants, index)
	if err != nil {
		return nil, err
	}
	return s.writeVariants(ctx, state)
}

func (s *draftService) AddVariantValue(ctx context.Context, draftID string, index int, value string) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(state.Variants) {
		return nil, combination.ErrNoSuchVariant
	}

	if err := combination.AddValue(&state.Variants[index], value); err != nil {
		return nil, err
	}
	return s.writeVariants(ctx, state)
}

func (s *draftService) RemoveVariantValue(ctx context.Context, draftID string, index int, value string) (*domain.DraftState, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(state.Variants) {
		return nil, combination.ErrNoSuchVariant
	}

	combination.RemoveValue(&state.Variants[index], combination.NormalizeValue(value))
	return s.writeVariants(ctx, state)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *draftService) UpdateCombination(ctx context.Context, draftID, combinationID string, in CombinationUpdate) (*domain.DraftState, error) {
	if in.Quantity != nil && !digitsOnly(*in.Quantity) {
		return nil, inputError("quantity", ErrInvalidQuantity)
	}

	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range state.Combinations {
		if state.Combinations[i].ID == combinationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCombinationNotFound
	}

	row := &state.Combinations[idx]
	if in.SKU != nil {
		row.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.InStock != nil {
		row.InStock = *in.InStock
	}
	if in.Quantity != nil {
		quantity := *in.Quantity
		row.Quantity = &quantity
	}

	if err := s.setField(ctx, draftID, repository.KeyProductCombinations, state.Combinations); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *draftService) SavePrice(ctx context.Context, draftID string, in PriceInput) (*domain.DraftState, error) {
	if in.Price != nil && in.Price.IsNegative() {
		return nil, inputError("price", ErrNegativeAmount)
	}
	if in.Discount != nil && in.Discount.IsNegative() {
		return nil, inputError("discount", ErrNegativeAmount)
	}
	if in.DiscountType == "" {
		in.DiscountType = domain.DiscountTypePercent
	}
	if in.DiscountType != domain.DiscountTypePercent && in.DiscountType != domain.DiscountTypeAmount {
		return nil, inputError("discountType", ErrInvalidDiscountType)
	}

	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}
	state.Price = in.Price
	state.Discount = in.Discount
	state.DiscountType = in.DiscountType

	fields := []struct {
		key   string
		value interface{}
	}{
		{repository.KeyPrice, state.Price},
		{repository.KeyDiscount, state.Discount},
		{repository.KeyDiscountType, state.DiscountType},
	}
	for _, f := range fields {
		if err := s.setField(ctx, draftID, f.key, f.value); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func stepResult(t wizard.Transition) *StepResult {
	return &StepResult{
		Step:      t.To,
		Route:     t.Route(),
		Moved:     t.Moved,
		Exited:    t.Exited,
		Confirmed: t.Confirmed,
	}
}

func (s *draftService) Advance(ctx context.Context, draftID string) (*StepResult, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	nav := wizard.NewNavigator(wizard.Step(state.Step))
	valid := StepValid(state, nav.Current())
	t := nav.Advance(valid)
	if !valid {
		return stepResult(t), ErrStepInvalid
	}

	if t.Moved {
		if err := s.setField(ctx, draftID, repository.KeyWizardStep, int(t.To)); err != nil {
			return nil, err
		}
	}
	return stepResult(t), nil
}

func (s *draftService) Retreat(ctx context.Context, draftID string) (*StepResult, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	nav := wizard.NewNavigator(wizard.Step(state.Step))
	t := nav.Retreat()
	if t.Exited {
		if err := s.Cancel(ctx, draftID); err != nil {
			return nil, err
		}
		s.logger.Info("Draft discarded", zap.String("draft_id", draftID))
		return stepResult(t), nil
	}

	if err := s.setField(ctx, draftID, repository.KeyWizardStep, int(t.To)); err != nil {
		return nil, err
	}
	return stepResult(t), nil
}

func (s *draftService) Confirm(ctx context.Context, draftID string) (*StepResult, error) {
	state, err := s.load(ctx, draftID)
	if err != nil {
		return nil, err
	}

	nav := wizard.NewNavigator(wizard.Step(state.Step))
	t := nav.Confirm(StepValid(state, nav.Current()))
	if !t.Confirmed {
		return stepResult(t), ErrStepInvalid
	}

	product, err := s.FinalizeDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	result := stepResult(t)
	result.Product = product
	return result, nil
}

// FinalizeDraft assembles the draft into a product, appends it to the
// product list and clears every draft key in one atomic write.
func (s *draftService) FinalizeDraft(ctx context.Context, draftID string) (*domain.Product, error) {
	state, err := s.drafts.Load(ctx, draftID, s.defaultCategory(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	product := Assemble(state)
	products, err := s.catalog.AppendProduct(ctx, product, s.drafts.Keys(draftID))
	if err != nil {
		return nil, fmt.Errorf("failed to finalize draft: %w", err)
	}

	s.logger.Info("Draft finalized",
		zap.String("draft_id", draftID),
		zap.String("product", product.Name),
		zap.Int("products", len(products)),
	)
	return &product, nil
}
