package script

import (
	"context"
	"errors"
	"testing"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

func apply(t *testing.T, src string, row value.Object) (value.Object, error) {
	t.Helper()
	return New(src).Apply(context.Background(), row)
}

func TestFieldRewrite(t *testing.T) {
	t.Parallel()

	out, err := apply(t, `
		row.status = "closed"
		row.premium = row.premium * 1.1
		return row
	`, value.Object{
		"status":  value.String("open"),
		"premium": value.Number(100),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got, _ := out.Get("status"); !got.Equal(value.String("closed")) {
		t.Errorf("status = %v", got)
	}
	if got, _ := out.Get("premium"); !got.Equal(value.Number(110.00000000000001)) && !got.Equal(value.Number(110)) {
		t.Errorf("premium = %v", got)
	}
}

func TestNestedAndArrayValues(t *testing.T) {
	t.Parallel()

	out, err := apply(t, `
		row.broker = { name = string.upper(row.broker.name), active = true }
		row.tags = { "renewal", "priority" }
		return row
	`, value.Object{
		"broker": value.Obj(value.Object{"name": value.String("marsh")}),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got, _ := out.Get("broker.name"); !got.Equal(value.String("MARSH")) {
		t.Errorf("broker.name = %v", got)
	}
	if got, _ := out.Get("broker.active"); !got.Equal(value.Bool(true)) {
		t.Errorf("broker.active = %v", got)
	}
	tags, _ := out.Get("tags")
	items, ok := tags.Array()
	if !ok || len(items) != 2 || !items[0].Equal(value.String("renewal")) {
		t.Errorf("tags = %v", tags)
	}
}

func TestScriptMustReturnTable(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		`return 42`,
		`return "nope"`,
		`local x = 1`,
	} {
		if _, err := apply(t, src, value.Object{}); !errors.Is(err, beema.ErrInvalidSpec) {
			t.Errorf("src %q: err = %v, want ErrInvalidSpec", src, err)
		}
	}
}

func TestSyntaxError(t *testing.T) {
	t.Parallel()

	if _, err := apply(t, `this is not lua`, value.Object{}); !errors.Is(err, beema.ErrInvalidSpec) {
		t.Fatalf("err = %v, want ErrInvalidSpec", err)
	}
}

func TestSandboxBlocksIO(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		`return { ok = io.open("/etc/passwd") }`,
		`return { ok = os.getenv("HOME") }`,
		`return require("io")`,
	} {
		if _, err := apply(t, src, value.Object{}); err == nil {
			t.Errorf("src %q: expected sandbox error", src)
		}
	}
}

func TestSourceRowUntouched(t *testing.T) {
	t.Parallel()

	row := value.Object{"status": value.String("open")}
	if _, err := apply(t, `row.status = "closed"; return row`, row); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := row.Get("status"); !got.Equal(value.String("open")) {
		t.Fatalf("input row mutated: %v", got)
	}
}

func TestResolverChaining(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	reg.RegisterFunc("identity", func(_ context.Context, row value.Object) (value.Object, error) {
		return row, nil
	})
	r := NewResolver(reg)

	if tr, err := r.ResolveTransform("lua:return row"); err != nil || tr == nil {
		t.Fatalf("lua ref: %v", err)
	}
	if tr, err := r.ResolveTransform("identity"); err != nil || tr == nil {
		t.Fatalf("registry ref: %v", err)
	}
	if _, err := r.ResolveTransform("missing"); !errors.Is(err, beema.ErrInvalidSpec) {
		t.Fatalf("missing ref: %v, want ErrInvalidSpec", err)
	}
}
