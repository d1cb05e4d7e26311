package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringsRoundTrip(t *testing.T) {
	s := Strings(map[string]string{FieldEmail: "a@b.com", FieldPassword: "pw"})

	assert.Equal(t, "a@b.com", String(s, FieldEmail))
	assert.Equal(t, "pw", String(s, FieldPassword))
	assert.Equal(t, "", String(s, "missing"))
	assert.Equal(t, "", String(nil, FieldEmail))
}

func TestServiceDescMethods(t *testing.T) {
	names := make([]string, 0, len(AuthService_ServiceDesc.Methods))
	for _, m := range AuthService_ServiceDesc.Methods {
		names = append(names, m.MethodName)
	}
	assert.Equal(t, []string{"Register", "Login", "Refresh", "Logout", "Me"}, names)
	assert.Equal(t, "/gophauth.v1.AuthService/Me", AuthService_Me_FullMethodName)
}

func TestServiceDescHasNoProtoFile(t *testing.T) {
	// The contract is Struct based; no .proto file backs the descriptor.
	assert.Nil(t, AuthService_ServiceDesc.Metadata)
	assert.Empty(t, AuthService_ServiceDesc.Streams)
	assert.Equal(t, ServiceName, AuthService_ServiceDesc.ServiceName)
}
