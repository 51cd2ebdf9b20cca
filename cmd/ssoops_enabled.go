//go:build ssoops

package cmd

// Compiling with the ssoops tag links in the identity-ops module, whose
// init registers its factory with the capability gate. The serve command
// picks it up at startup and enables verify_email and reset_password.
import _ "github.com/grnet/mcp-aws-orgs/internal/ssoops"
