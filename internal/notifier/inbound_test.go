package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

func TestDispatch_RecognizesCommandsCaseInsensitively(t *testing.T) {
	commands := defaultCommands()
	reg := registry.New(nil)

	assert.Equal(t, "pong", dispatch("/PING", commands, reg))
	assert.Equal(t, "pong", dispatch("ping", commands, reg))
}

func TestDispatch_UnrecognizedTextGetsHelp(t *testing.T) {
	commands := defaultCommands()
	reg := registry.New(nil)

	reply := dispatch("banana", commands, reg)
	assert.Contains(t, reply, "Unrecognized command")
}

func TestDispatch_StatusReportsNoClients(t *testing.T) {
	commands := defaultCommands()
	reg := registry.New(nil)

	reply := dispatch("/status", commands, reg)
	assert.Contains(t, reply, "No clients")
}
