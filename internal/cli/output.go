// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintToken prints a base64 session token
func (p *Printer) PrintToken(username, method, token string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"username": username,
			"method":   method,
			"token":    token,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, token)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSignature prints a base64 signature
func (p *Printer) PrintSignature(signature string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"signature": signature,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, signature)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintVerification prints the outcome of a verification
func (p *Printer) PrintVerification(valid bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"valid": valid,
		})
	case OutputFormatText:
		if valid {
			fmt.Fprintln(p.writer, "valid")
		} else {
			fmt.Fprintln(p.writer, "invalid")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintMethod prints the active method and its sizing
func (p *Printer) PrintMethod(method string, methods []string, tokenLength, sigLength int) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"method":       method,
			"methods":      methods,
			"token_length": tokenLength,
			"sig_length":   sigLength,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Method:       %s\n", method)
		fmt.Fprintf(p.writer, "Token length: %d\n", tokenLength)
		fmt.Fprintf(p.writer, "Sig length:   %d\n", sigLength)
		fmt.Fprintln(p.writer, "Available:")
		for _, m := range methods {
			fmt.Fprintf(p.writer, "  - %s\n", m)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPurged prints the number of key pairs removed for username
func (p *Printer) PrintPurged(username string, removed int) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"username": username,
			"removed":  removed,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Removed %d key pair(s) for %s\n", removed, username)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintUsers prints the users with stored credentials
func (p *Printer) PrintUsers(users []string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"users": users,
		})
	case OutputFormatText:
		if len(users) == 0 {
			fmt.Fprintln(p.writer, "No users found")
			return nil
		}
		for _, u := range users {
			fmt.Fprintln(p.writer, u)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
