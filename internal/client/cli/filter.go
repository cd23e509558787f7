package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/shopspring/decimal"
)

// parseFilter applies "key=value" arguments to base. An empty value clears
// the key; "reset" starts over from the default filter. Changing anything
// but the page sends the user back to the first page.
func parseFilter(base models.ProductFilter, args []string) (models.ProductFilter, error) {
	f := base
	pageSet, changed := false, false

	for _, arg := range args {
		if arg == "reset" {
			f = models.DefaultFilter()
			continue
		}

		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return base, usage("list [key=value ...]; keys: q, category, min, max, status, page, size, sort")
		}
		value = strings.TrimSpace(value)

		switch key {
		case "q":
			f.Q = optional(value)
		case "category":
			f.Category = optional(value)
		case "min", "max":
			var price *decimal.Decimal
			if value != "" {
				d, err := decimal.NewFromString(value)
				if err != nil {
					return base, fmt.Errorf("%w: bad %s price %q", common.ErrValidation, key, value)
				}
				price = &d
			}
			if key == "min" {
				f.MinPrice = price
			} else {
				f.MaxPrice = price
			}
		case "status":
			if value == "" {
				f.Status = nil
				break
			}
			s, err := models.ParseStatus(value)
			if err != nil {
				return base, err
			}
			f.Status = &s
		case "page":
			n, err := nonNegative(key, value)
			if err != nil {
				return base, err
			}
			f.Page = n
			pageSet = true
			continue
		case "size":
			n, err := nonNegative(key, value)
			if err != nil {
				return base, err
			}
			f.Size = n
		case "sort":
			f.Sort = optional(value)
		default:
			return base, fmt.Errorf("%w: unknown filter key %q", common.ErrValidation, key)
		}
		changed = true
	}

	if changed && !pageSet {
		f.Page = models.Ptr(0)
	}
	return f, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nonNegative(key, value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative number", common.ErrValidation, key)
	}
	return &n, nil
}

// describeFilter renders the present filter fields, e.g. for the list header.
func describeFilter(f models.ProductFilter) string {
	values := f.Values()
	values.Del("page")
	if len(values) == 0 {
		return "all products"
	}
	return values.Encode()
}
