// Package command mutates a shopping cart through a closed set of commands,
// checking stock and re-pricing product lines after every change.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

var (
	// ErrInvalidCommand is returned for unknown commands and payloads that fail validation.
	ErrInvalidCommand = errors.New("invalid cart command")
	// ErrUnavailable is returned when a SKU cannot be sold.
	ErrUnavailable = errors.New("sku not available")
	// ErrInsufficientStock is returned when the requested quantity exceeds what is left to sell.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Command is a cart mutation. The set of implementations is closed.
type Command interface {
	Name() string
	command()
}

// Command names as accepted by Parse.
const (
	NameAddToCart       = "addToCart"
	NameRemoveAllSku    = "removeAllSku"
	NameRemoveOneSku    = "removeOneSku"
	NameSetQty          = "setQty"
	NameAddCoupon       = "addCoupon"
	NameRemoveCoupon    = "removeCoupon"
	NameClean           = "clean"
	NameViewSku         = "viewSku"
	NameViewCategory    = "viewCategory"
	NameSetCarrierSla   = "setCarrierSla"
	NameSetLocation     = "setLocation"
	NameSetOrderMessage = "setOrderMessage"
	NameSetOrderDetail  = "setOrderDetail"
)

// AddToCart adds Qty of a SKU. Qty is parsed leniently: blank, malformed
// or non-positive values add one unit.
type AddToCart struct {
	Supplier    string `json:"supplier" validate:"required"`
	Sku         string `json:"sku" validate:"required"`
	ProductName string `json:"name"`
	Qty         string `json:"qty"`
}

// RemoveAllSku drops a product line.
type RemoveAllSku struct {
	Supplier string `json:"supplier" validate:"required"`
	Sku      string `json:"sku" validate:"required"`
}

// RemoveOneSku removes one unit of a product line.
type RemoveOneSku struct {
	Supplier string `json:"supplier" validate:"required"`
	Sku      string `json:"sku" validate:"required"`
}

// SetQty sets the quantity of a product line. Malformed values mean one
// unit; zero removes the line.
type SetQty struct {
	Supplier string `json:"supplier" validate:"required"`
	Sku      string `json:"sku" validate:"required"`
	Qty      string `json:"qty"`
}

type AddCoupon struct {
	Code string `json:"code" validate:"required,max=64"`
}

type RemoveCoupon struct {
	Code string `json:"code" validate:"required"`
}

type Clean struct{}

type ViewSku struct {
	Supplier string `json:"supplier"`
	Sku      string `json:"sku" validate:"required"`
}

// ViewCategory records a browsed category; it never changes prices.
type ViewCategory struct {
	Category string `json:"category" validate:"required,max=64"`
}

// SetCarrierSla selects the shipping method of a supplier; a non-positive
// SlaID clears it.
type SetCarrierSla struct {
	Supplier string `json:"supplier" validate:"required"`
	SlaID    int64  `json:"slaId"`
}

type SetLocation struct {
	CountryCode string `json:"countryCode" validate:"required,len=2,alpha"`
	StateCode   string `json:"stateCode" validate:"omitempty,max=8"`
}

type SetOrderMessage struct {
	Message string `json:"message" validate:"max=1024"`
}

// SetOrderDetail stores a free form order detail. An empty Value removes it.
type SetOrderDetail struct {
	Key   string `json:"key" validate:"required,max=64"`
	Value string `json:"value" validate:"max=1024"`
}

func (AddToCart) Name() string       { return NameAddToCart }
func (RemoveAllSku) Name() string    { return NameRemoveAllSku }
func (RemoveOneSku) Name() string    { return NameRemoveOneSku }
func (SetQty) Name() string          { return NameSetQty }
func (AddCoupon) Name() string       { return NameAddCoupon }
func (RemoveCoupon) Name() string    { return NameRemoveCoupon }
func (Clean) Name() string           { return NameClean }
func (ViewSku) Name() string         { return NameViewSku }
func (ViewCategory) Name() string    { return NameViewCategory }
func (SetCarrierSla) Name() string   { return NameSetCarrierSla }
func (SetLocation) Name() string     { return NameSetLocation }
func (SetOrderMessage) Name() string { return NameSetOrderMessage }
func (SetOrderDetail) Name() string  { return NameSetOrderDetail }

func (AddToCart) command()       {}
func (RemoveAllSku) command()    {}
func (RemoveOneSku) command()    {}
func (SetQty) command()          {}
func (AddCoupon) command()       {}
func (RemoveCoupon) command()    {}
func (Clean) command()           {}
func (ViewSku) command()         {}
func (ViewCategory) command()    {}
func (SetCarrierSla) command()   {}
func (SetLocation) command()     {}
func (SetOrderMessage) command() {}
func (SetOrderDetail) command()  {}

// ParseQuantity reads a requested quantity. Values that are blank, not
// numeric or not positive yield fallback.
func ParseQuantity(raw string, fallback decimal.Decimal) decimal.Decimal {
	qty, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !qty.IsPositive() {
		return fallback
	}
	if qty.GreaterThan(money.MaxQuantity) {
		return money.MaxQuantity
	}
	return qty
}

// Parse builds a command from its name and string parameters.
func Parse(name string, params map[string]string) (Command, error) {
	p := func(key string) string { return strings.TrimSpace(params[key]) }
	switch name {
	case NameAddToCart:
		return AddToCart{Supplier: p("supplier"), Sku: p("sku"), ProductName: p("name"), Qty: p("qty")}, nil
	case NameRemoveAllSku:
		return RemoveAllSku{Supplier: p("supplier"), Sku: p("sku")}, nil
	case NameRemoveOneSku:
		return RemoveOneSku{Supplier: p("supplier"), Sku: p("sku")}, nil
	case NameSetQty:
		return SetQty{Supplier: p("supplier"), Sku: p("sku"), Qty: p("qty")}, nil
	case NameAddCoupon:
		return AddCoupon{Code: p("code")}, nil
	case NameRemoveCoupon:
		return RemoveCoupon{Code: p("code")}, nil
	case NameClean:
		return Clean{}, nil
	case NameViewSku:
		return ViewSku{Supplier: p("supplier"), Sku: p("sku")}, nil
	case NameViewCategory:
		return ViewCategory{Category: p("category")}, nil
	case NameSetCarrierSla:
		id, err := strconv.ParseInt(p("slaId"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: slaId %q", ErrInvalidCommand, p("slaId"))
		}
		return SetCarrierSla{Supplier: p("supplier"), SlaID: id}, nil
	case NameSetLocation:
		return SetLocation{CountryCode: p("countryCode"), StateCode: p("stateCode")}, nil
	case NameSetOrderMessage:
		return SetOrderMessage{Message: params["message"]}, nil
	case NameSetOrderDetail:
		return SetOrderDetail{Key: p("key"), Value: params["value"]}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, name)
}

// Names lists the accepted command names, sorted.
func Names() []string {
	names := []string{
		NameAddToCart, NameRemoveAllSku, NameRemoveOneSku, NameSetQty,
		NameAddCoupon, NameRemoveCoupon, NameClean, NameViewSku,
		NameViewCategory, NameSetCarrierSla, NameSetLocation,
		NameSetOrderMessage, NameSetOrderDetail,
	}
	sort.Strings(names)
	return names
}
