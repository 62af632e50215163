package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/services/storefront-cart-go/internal/logger"
)

// VariantLookup is the part of the catalog the engine depends on.
type VariantLookup interface {
	Get(ctx context.Context, variantID string) (catalog.Variant, error)
}

// Service is the cart engine. Every mutating call returns the recomputed cart.
type Service struct {
	repo     Repository
	variants VariantLookup
	policy   config.StockPolicy
	log      *logger.Logger
}

func NewService(repo Repository, variants VariantLookup, policy config.StockPolicy, log *logger.Logger) *Service {
	if policy == "" {
		policy = config.StockPolicyIgnore
	}
	return &Service{repo: repo, variants: variants, policy: policy, log: log}
}

func (s *Service) GetCart(ctx context.Context, id identity.Identity) (Cart, error) {
	cartID, err := s.cartFor(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	return s.load(ctx, cartID)
}

// AddItem adds quantity units of a variant, merging into an existing line for the same variant.
func (s *Service) AddItem(ctx context.Context, id identity.Identity, variantID string, quantity int) (Cart, error) {
	if quantity <= 0 || quantity > MaxLineQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	variant, err := s.variants.Get(ctx, variantID)
	if err != nil {
		return Cart{}, catalogErr(err)
	}
	cartID, err := s.cartFor(ctx, id)
	if err != nil {
		return Cart{}, err
	}

	if s.policy == config.StockPolicyReject {
		existing, err := s.repo.QuantityOf(ctx, cartID, variant.ID)
		if err != nil {
			return Cart{}, storageErr("check line quantity", err)
		}
		if existing+quantity > variant.InStock {
			return Cart{}, fmt.Errorf("%w: variant %s has %d, cart would hold %d",
				ErrInsufficientStock, variant.ID, variant.InStock, existing+quantity)
		}
	}

	line, err := s.repo.AddLine(ctx, cartID, variant.ID, quantity)
	if err != nil {
		return Cart{}, storageErr("add line", err)
	}
	s.log.Debug("cart line added", "cartId", cartID, "lineId", line.ID, "variantId", variant.ID, "quantity", line.Quantity)
	return s.load(ctx, cartID)
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateItem(ctx context.Context, id identity.Identity, lineID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id, lineID)
	}
	if quantity > MaxLineQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	if uuid.Validate(lineID) != nil {
		return Cart{}, ErrLineNotFound
	}
	cartID, err := s.cartFor(ctx, id)
	if err != nil {
		return Cart{}, err
	}

	if s.policy == config.StockPolicyReject {
		line, err := s.repo.LineByID(ctx, cartID, lineID)
		if err != nil {
			return Cart{}, storageErr("load line", err)
		}
		variant, err := s.variants.Get(ctx, line.VariantID)
		if err != nil {
			return Cart{}, catalogErr(err)
		}
		if quantity > variant.InStock {
			return Cart{}, fmt.Errorf("%w: variant %s has %d, requested %d",
				ErrInsufficientStock, variant.ID, variant.InStock, quantity)
		}
	}

	if err := s.repo.SetQuantity(ctx, cartID, lineID, quantity); err != nil {
		return Cart{}, storageErr("set quantity", err)
	}
	return s.load(ctx, cartID)
}

// RemoveItem is idempotent: removing an absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, id identity.Identity, lineID string) (Cart, error) {
	cartID, err := s.cartFor(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	if uuid.Validate(lineID) == nil {
		if err := s.repo.DeleteLine(ctx, cartID, lineID); err != nil {
			return Cart{}, storageErr("remove line", err)
		}
	}
	return s.load(ctx, cartID)
}

func (s *Service) ClearCart(ctx context.Context, id identity.Identity) (Cart, error) {
	cartID, err := s.cartFor(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	if err := s.repo.ClearLines(ctx, cartID); err != nil {
		return Cart{}, storageErr("clear cart", err)
	}
	return newCart(cartID, nil), nil
}

func (s *Service) cartFor(ctx context.Context, id identity.Identity) (string, error) {
	owner, err := OwnerOf(id)
	if err != nil {
		return "", err
	}
	cartID, err := s.repo.GetOrCreate(ctx, owner)
	if err != nil {
		return "", storageErr("get or create cart", err)
	}
	return cartID, nil
}

func (s *Service) load(ctx context.Context, cartID string) (Cart, error) {
	lines, err := s.repo.ListLines(ctx, cartID)
	if err != nil {
		return Cart{}, storageErr("load cart", err)
	}
	c := newCart(cartID, lines)
	if s.policy == config.StockPolicyWarn {
		for _, l := range c.Lines {
			if l.Quantity > l.InStock {
				c.Warnings = append(c.Warnings, StockWarning{
					LineID:    l.LineID,
					VariantID: l.VariantID,
					Requested: l.Quantity,
					Available: l.InStock,
				})
			}
		}
	}
	return c, nil
}

// storageErr lets domain sentinels through and tags everything else as a storage failure.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrLineNotFound) || errors.Is(err, ErrInvalidQuantity) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func catalogErr(err error) error {
	if errors.Is(err, catalog.ErrVariantNotFound) {
		return err
	}
	return fmt.Errorf("%w: resolve variant: %w", ErrStorageUnavailable, err)
}
