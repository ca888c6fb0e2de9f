package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/cart/command"
)

// batch is the JSON document accepted on -input.
type batch struct {
	Currency string               `json:"currency"`
	Context  cart.ShoppingContext `json:"context"`
	Commands []rawCommand         `json:"commands"`
}

type rawCommand struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

func readBatch(r io.Reader) (batch, error) {
	var b batch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return batch{}, fmt.Errorf("%w: decode batch: %v", cart.ErrInvalidInput, err)
	}
	return b, nil
}

// parseArg reads a positional command such as "addToCart?sku=SKU-1&qty=2".
func parseArg(arg string) (rawCommand, error) {
	name, query, _ := strings.Cut(strings.TrimSpace(arg), "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return rawCommand{}, fmt.Errorf("%w: %q: %v", command.ErrInvalidCommand, arg, err)
	}
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	return rawCommand{Name: name, Params: params}, nil
}

func (b batch) commands() ([]command.Command, error) {
	out := make([]command.Command, 0, len(b.Commands))
	for i, raw := range b.Commands {
		cmd, err := command.Parse(raw.Name, raw.Params)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		out = append(out, cmd)
	}
	return out, nil
}

// overlay copies the non-empty flag values over the batch context.
func overlay(sc cart.ShoppingContext, flags cart.ShoppingContext) cart.ShoppingContext {
	if flags.ShopID > 0 {
		sc.ShopID = flags.ShopID
	}
	if flags.ShopCode != "" {
		sc.ShopCode = flags.ShopCode
	}
	if flags.CustomerShopID > 0 {
		sc.CustomerShopID = flags.CustomerShopID
	}
	if flags.CustomerShopCode != "" {
		sc.CustomerShopCode = flags.CustomerShopCode
	}
	if flags.CountryCode != "" {
		sc.CountryCode = strings.ToUpper(flags.CountryCode)
	}
	if flags.StateCode != "" {
		sc.StateCode = strings.ToUpper(flags.StateCode)
	}
	if flags.CustomerEmail != "" {
		sc.CustomerEmail = flags.CustomerEmail
	}
	return sc
}
