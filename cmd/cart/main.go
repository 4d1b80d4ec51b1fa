package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/infra"
	"storefront/internal/logger"

	"go.uber.org/zap"
)

const usage = `Usage: cart [flags] <command> [args]

Commands:
  products          list products and stock
  show              show the cart
  add <id>          add one unit of a product
  set <id> <qty>    set a line's quantity (0 removes it)
  remove <id>       remove a line
  clear             empty the cart
  checkout          place one order per line and print the WhatsApp link

Flags:
`

func main() {
	cfg := config.LoadClient()

	fs := flag.NewFlagSet("cart", flag.ExitOnError)
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "storefront API base URL")
	fs.StringVar(&cfg.CartFile, "file", cfg.CartFile, "cart file")
	fs.StringVar(&cfg.WhatsAppPhone, "phone", cfg.WhatsAppPhone, "WhatsApp number orders are sent to")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	lg, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer lg.Sync()

	app := &cli{
		cfg:    cfg,
		client: infra.NewStoreClient(cfg.APIURL, cfg.Timeout),
		store:  cart.NewFileStore(cfg.CartFile),
		out:    os.Stdout,
		logger: lg,
	}

	if err := app.run(context.Background(), fs.Arg(0), fs.Args()[1:]); err != nil {
		var apiErr *infra.APIError
		if errors.As(err, &apiErr) {
			lg.Debug("store api error", zap.Int("status", apiErr.StatusCode))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	cfg    config.Client
	client *infra.StoreClient
	store  *cart.FileStore
	out    io.Writer
	logger *zap.Logger
}

func (a *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "products":
		snapshot, err := a.fetch(ctx)
		if err != nil {
			return err
		}
		a.printProducts(snapshot)
		return nil

	case "show":
		c, err := cart.Load(a.store, cart.NewSnapshot())
		if err != nil {
			return err
		}
		a.printCart(c)
		return nil

	case "add":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		c, err := a.loadWithSnapshot(ctx)
		if err != nil {
			return err
		}
		return a.report(c.Add(id))

	case "set":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errors.New("set needs <id> <qty>")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		c, err := a.loadWithSnapshot(ctx)
		if err != nil {
			return err
		}
		return a.report(c.SetQuantity(id, qty))

	case "remove":
		id, err := argID(args, 0)
		if err != nil {
			return err
		}
		c, err := cart.Load(a.store, cart.NewSnapshot())
		if err != nil {
			return err
		}
		return a.report(c.Remove(id))

	case "clear":
		c, err := cart.Load(a.store, cart.NewSnapshot())
		if err != nil {
			return err
		}
		return a.report(c.Clear())

	case "checkout":
		c, err := a.loadWithSnapshot(ctx)
		if err != nil {
			return err
		}
		return a.checkout(ctx, c)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *cli) fetch(ctx context.Context) (*cart.Snapshot, error) {
	snapshot := cart.NewSnapshot()
	if err := snapshot.Refresh(ctx, a.client); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return snapshot, nil
}

func (a *cli) loadWithSnapshot(ctx context.Context) (*cart.Cart, error) {
	snapshot, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return cart.Load(a.store, snapshot)
}

func (a *cli) report(notice cart.Notice, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, notice.Message)
	if !notice.OK() {
		return errors.New("request refused")
	}
	return nil
}

func (a *cli) checkout(ctx context.Context, c *cart.Cart) error {
	res, err := cart.NewCheckout(a.client, a.cfg.WhatsAppPhone, a.logger).Run(ctx, c)
	if errors.Is(err, cart.ErrEmptyCart) {
		fmt.Fprintln(a.out, "Your cart is empty!")
		return nil
	}
	if res == nil {
		return err
	}

	for _, lr := range res.Lines {
		if lr.OK() {
			fmt.Fprintf(a.out, "  ok    %s x%d  order #%d\n", lr.Line.Name, lr.Line.Quantity, lr.Order.ID)
			continue
		}
		fmt.Fprintf(a.out, "  fail  %s x%d  %v\n", lr.Line.Name, lr.Line.Quantity, lr.Err)
	}
	fmt.Fprintln(a.out, res.Summary())
	if res.Link != "" {
		fmt.Fprintln(a.out, res.Link)
	}
	if err != nil {
		return err
	}
	if len(res.Failed()) > 0 {
		return errors.New("some items were not ordered")
	}
	return nil
}

func (a *cli) printProducts(s *cart.Snapshot) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range s.Products() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	w.Flush()
}

func (a *cli) printCart(c *cart.Cart) {
	lines := c.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "Your cart is empty")
		return
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", l.ID, l.Name, l.Quantity, l.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t%d\t\t%s\n", c.Count(), c.Total().StringFixed(2))
	w.Flush()
}

func argID(args []string, i int) (uint64, error) {
	if len(args) <= i {
		return 0, errors.New("missing product id")
	}
	id, err := strconv.ParseUint(args[i], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid product id %q", args[i])
	}
	return id, nil
}
