package factory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	dErrors "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain-errors"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
)

func TestClientBuildsEveryVariant(t *testing.T) {
	f := New(circuit.NewRegistry())

	tests := []struct {
		creds  registrar.Credentials
		hasDNS bool
	}{
		{registrar.Credentials{Type: registrar.TypeCloudflare, APIKey: "token", AccountID: "acct"}, true},
		{registrar.Credentials{Type: registrar.TypeNamecheap, APIUser: "user", APIKey: "key"}, false},
		{registrar.Credentials{Type: registrar.TypePorkbun, APIKey: "key", APISecret: "secret"}, true},
	}
	for _, tc := range tests {
		t.Run(string(tc.creds.Type), func(t *testing.T) {
			client, err := f.Client(tc.creds)
			require.NoError(t, err)
			require.Equal(t, tc.creds.Type, client.Name())

			_, ok := registrar.AsDNSManager(client)
			require.Equal(t, tc.hasDNS, ok)
		})
	}
}

func TestClientRejectsUnsupportedType(t *testing.T) {
	f := New(circuit.NewRegistry())

	_, err := f.Client(registrar.Credentials{Type: "godaddy"})
	require.Error(t, err)
	require.Equal(t, dErrors.CodeConfiguration, dErrors.CodeOf(err))
}

func TestClientRejectsIncompleteCredentials(t *testing.T) {
	f := New(circuit.NewRegistry())

	_, err := f.Client(registrar.Credentials{Type: registrar.TypePorkbun, APIKey: "key"})
	require.Error(t, err)
}

func TestClientsSharePerProviderBreaker(t *testing.T) {
	breakers := circuit.NewRegistry()
	f := New(breakers)

	_, err := f.Client(registrar.Credentials{Type: registrar.TypePorkbun, APIKey: "a", APISecret: "b"})
	require.NoError(t, err)
	_, err = f.Client(registrar.Credentials{Type: registrar.TypePorkbun, APIKey: "c", APISecret: "d"})
	require.NoError(t, err)

	// Both clients registered against the same breaker name.
	require.Equal(t, []string{"porkbun"}, breakers.Names())
}
