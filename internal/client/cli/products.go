package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04"

// List applies args to the remembered filter and prints that page.
func (a *App) List(ctx context.Context, args []string) error {
	f, err := parseFilter(a.filter, args)
	if err != nil {
		return err
	}
	a.filter = f

	page, err := a.service.List(ctx, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Products (%s)\n", describeFilter(f))
	if len(page.Content) == 0 {
		fmt.Fprintln(a.out, "No products found")
	} else {
		printProducts(a.out, page.Content)
	}

	if !page.Valid() {
		fmt.Fprintf(a.out, "Page %d is out of range (%d pages)\n", page.Number+1, page.TotalPages)
		return nil
	}
	footer := fmt.Sprintf("Page %d of %d, %d products", page.Number+1, max(page.TotalPages, 1), page.TotalElements)
	if page.HasNext() {
		footer += fmt.Sprintf("; next: list page=%d", page.Number+1)
	}
	fmt.Fprintln(a.out, footer)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := idArg("show <id>", args, 1)
	if err != nil {
		return err
	}
	p, err := a.service.Get(ctx, id)
	if err != nil {
		return err
	}
	printProduct(a.out, p)
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	cats, err := a.service.Categories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		fmt.Fprintln(a.out, "No categories")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintln(a.out, "  "+c)
	}
	return nil
}

// Add prompts for a new product. When the create fails the answers are
// kept and offered as defaults on the next add.
func (a *App) Add(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}

	in := models.ProductInput{Status: models.StatusActive}
	if a.draft != nil {
		in = *a.draft
	}

	form, err := a.productForm(formValues{
		name:        in.Name,
		description: in.Description,
		price:       priceText(in.Price, a.draft != nil),
		category:    in.Category,
		status:      string(in.Status),
	})
	if err != nil {
		return err
	}

	in = models.ProductInput{
		Name:        form.name,
		Description: form.description,
		Category:    form.category,
		Status:      models.Status(strings.ToLower(form.status)),
	}
	price, perr := parsePrice(form.price)
	in.Price = price
	a.draft = &in
	if perr != nil {
		return perr
	}

	p, err := a.service.Create(ctx, in)
	if err != nil {
		return err
	}
	a.draft = nil
	fmt.Fprintf(a.out, "Created product #%d\n", p.ID)
	return nil
}

// Edit prompts for every field of a product, showing the current values,
// and sends only what changed.
func (a *App) Edit(ctx context.Context, args []string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	id, err := idArg("edit <id>", args, 1)
	if err != nil {
		return err
	}

	cur, err := a.service.Get(ctx, id)
	if err != nil {
		return err
	}

	form, err := a.productForm(formValues{
		name:        cur.Name,
		description: cur.Description,
		price:       cur.Price.String(),
		category:    cur.Category,
		status:      string(cur.Status),
	})
	if err != nil {
		return err
	}

	var patch models.ProductPatch
	if form.name != cur.Name {
		patch.Name = models.Ptr(form.name)
	}
	if form.description != cur.Description {
		patch.Description = models.Ptr(form.description)
	}
	if form.category != cur.Category {
		patch.Category = models.Ptr(form.category)
	}
	if s := models.Status(strings.ToLower(form.status)); s != cur.Status {
		patch.Status = &s
	}
	price, err := parsePrice(form.price)
	if err != nil {
		return err
	}
	if !price.Equal(cur.Price) {
		patch.Price = &price
	}

	if patch.IsEmpty() {
		fmt.Fprintln(a.out, "Nothing to change")
		return nil
	}

	p, err := a.service.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated product #%d\n", p.ID)
	return nil
}

// Price changes a product's price optimistically: cached views show the
// new price at once and revert if the backend rejects it.
func (a *App) Price(ctx context.Context, args []string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	id, err := idArg("price <id> <value>", args, 2)
	if err != nil {
		return err
	}
	price, err := parsePrice(args[1])
	if err != nil {
		return err
	}

	p, err := a.service.UpdateOptimistically(ctx, id, models.ProductPatch{Price: &price})
	if err != nil {
		return fmt.Errorf("price change reverted: %w", err)
	}
	fmt.Fprintf(a.out, "Price of #%d is now %s\n", p.ID, p.Price.StringFixed(2))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	id, err := idArg("delete <id>", args, 1)
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete product #%d? (y/N)", id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.service.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted product #%d\n", id)
	return nil
}

type formValues struct {
	name, description, price, category, status string
}

func (a *App) productForm(cur formValues) (formValues, error) {
	var (
		out formValues
		err error
	)
	fields := []struct {
		prompt string
		cur    string
		dst    *string
	}{
		{"Name", cur.name, &out.name},
		{"Description ('-' to clear)", cur.description, &out.description},
		{"Price", cur.price, &out.price},
		{"Category", cur.category, &out.category},
		{"Status (active|discontinued)", cur.status, &out.status},
	}
	for _, f := range fields {
		if *f.dst, err = GetWithDefault(a.reader, f.prompt, f.cur, a.out); err != nil {
			return formValues{}, err
		}
	}
	return out, nil
}

func idArg(usageText string, args []string, want int) (int64, error) {
	if len(args) != want {
		return 0, usage("%s", usageText)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad product id %q", common.ErrValidation, args[0])
	}
	return id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad price %q", common.ErrValidation, raw)
	}
	return d, nil
}

// priceText shows a zero price only when it was typed in by the user.
func priceText(d decimal.Decimal, typed bool) string {
	if d.IsZero() && !typed {
		return ""
	}
	return d.String()
}

func printProducts(w io.Writer, products []models.Product) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTATUS\tCREATED")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Status, formatTime(p))
	}
	_ = tw.Flush()
}

func printProduct(w io.Writer, p *models.Product) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	}
	fmt.Fprintf(tw, "Price:\t%s\n", p.Price.StringFixed(2))
	fmt.Fprintf(tw, "Category:\t%s\n", p.Category)
	fmt.Fprintf(tw, "Status:\t%s\n", p.Status)
	fmt.Fprintf(tw, "Created:\t%s\n", formatTime(*p))
	_ = tw.Flush()
}

func formatTime(p models.Product) string {
	if p.CreatedAt.IsZero() {
		return "-"
	}
	return p.CreatedAt.Local().Format(timeLayout)
}
