package gatekeep_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	httpapi "github.com/corvid-labs/gatekeep/internal/gatekeep/http"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/service"
	"github.com/corvid-labs/gatekeep/internal/gatekeep/store/drivers/sqlite"
	"github.com/corvid-labs/gatekeep/pkg/sdk"
	"github.com/corvid-labs/gatekeep/pkg/tokenx"
	"github.com/stretchr/testify/require"
)

const (
	bootstrapToken = "test-bootstrap-token-12345"
	adminUsername  = "admin"
	adminEmail     = "admin@example.com"
	adminPassword  = "Admin123!"

	superuserName     = "root"
	superuserPassword = "RootSecret!"

	testIssuer = "gatekeep-e2e"
)

// setupServer wires the full service against an in-memory database and
// serves it over httptest. Each call is an isolated install.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keyring, err := tokenx.NewKeyring(testIssuer)
	require.NoError(t, err)

	lookup := &service.Lookup{
		Store:     st,
		Superuser: service.SuperuserConfig{Name: superuserName, Password: superuserPassword},
	}
	sessions := &service.Sessions{Store: st, Timeout: 30 * time.Minute}
	authenticator := &service.Authenticator{
		Store:    st,
		Lookup:   lookup,
		Sessions: sessions,
		Notifier: service.NewHookNotifier(),
	}

	router := httpapi.NewRouter(keyring, "e2e", st, slog.Default())
	router.Authenticator = authenticator
	router.Tokens = &service.Tokens{
		Store:      st,
		Keyring:    keyring,
		Issuer:     testIssuer,
		AccessTTL:  tokenx.DefaultAccessTTL,
		RefreshTTL: tokenx.DefaultRefreshTTL,
	}
	router.Bootstrap = &service.Bootstrap{Store: st, Token: bootstrapToken}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// bootstrapAdmin creates the initial admin account.
func bootstrapAdmin(t *testing.T, client *sdk.Client) string {
	t.Helper()

	id, err := client.Bootstrap(context.Background(), bootstrapToken, adminUsername, adminEmail, adminPassword)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}
