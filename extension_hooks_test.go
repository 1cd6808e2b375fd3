package treasury

import (
	"context"
	"testing"

	"github.com/goliatone/go-treasury/core"
)

func TestExtensionHooks_RegisterAndBuildBundles(t *testing.T) {
	hooks := NewExtensionHooks()

	if err := hooks.RegisterCommandQueryBundle("reporting_bundle", func(service CommandQueryService) (any, error) {
		return map[string]any{
			"balance_fn": service.GetBalance,
			"status_fn":  service.GetStatus,
		}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("reporting_bundle", func(CommandQueryService) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate bundle registration error")
	}
	if err := hooks.RegisterCommandQueryBundle("", func(CommandQueryService) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected empty bundle name to be rejected")
	}
	if err := hooks.RegisterCommandQueryBundle("audit_bundle", nil); err == nil {
		t.Fatalf("expected nil bundle factory to be rejected")
	}

	svc := &stubFacadeService{}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected one bundle, got %d", len(bundles))
	}
	if _, ok := bundles["reporting_bundle"]; !ok {
		t.Fatalf("expected reporting_bundle entry in built bundles")
	}

	names := hooks.BundleNames()
	if len(names) != 1 || names[0] != "reporting_bundle" {
		t.Fatalf("expected bundle names [reporting_bundle], got %v", names)
	}
}

func TestExtensionHooks_BuildRequiresService(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterCommandQueryBundle("reporting_bundle", func(service CommandQueryService) (any, error) {
		status, err := service.GetStatus(context.Background())
		if err != nil {
			return nil, err
		}
		return status, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}

	if _, err := hooks.BuildCommandQueryBundles(nil); err == nil {
		t.Fatalf("expected error building bundles without a service")
	}

	svc := &stubFacadeService{}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	status, ok := bundles["reporting_bundle"].(core.VaultStatus)
	if !ok {
		t.Fatalf("expected built bundle to carry the status value, got %T", bundles["reporting_bundle"])
	}
	if status.Config.CustodialAccount != "vault-1" {
		t.Fatalf("unexpected status in bundle: %+v", status)
	}
}
