// Copyright (c) 2025 Eternadex Authors

package api

import "fmt"

func (r *OrderExecuteRequest) Check() error {
	if len(r.TokenIn) == 0 || len(r.TokenOut) == 0 {
		return fmt.Errorf("missing required fields: tokenIn, tokenOut, amount")
	}
	if r.TokenIn == r.TokenOut {
		return fmt.Errorf("tokenIn and tokenOut must be different")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}

func (r *OrderGetRequest) Check() error {
	if len(r.OrderID) == 0 {
		return fmt.Errorf("order id cannot be empty")
	}
	return nil
}
