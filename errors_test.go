package hop

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnauthorized, "hop: unauthorized"},
		{ErrMissingFunds, "hop: you must send the coins you wish to transfer"},
		{ErrUpstream, "hop: dispatched call failed"},
		{ErrEncoding, "hop: dispatch encoding failed"},
		{ErrInvalidMessage, "hop: execute message must set exactly one variant"},
		{ErrUnknownCommand, "hop: unknown command type"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, tt.err.Error())
			}
		})
	}
}

func TestAddressError(t *testing.T) {
	cause := errors.New("bad checksum")

	t.Run("with cause", func(t *testing.T) {
		err := &AddressError{Field: "recipient", Address: "0xdead", Err: cause}

		if !errors.Is(err, ErrUnauthorized) {
			t.Error("Expected errors.Is(err, ErrUnauthorized)")
		}
		if !errors.Is(err, cause) {
			t.Error("Expected errors.Is(err, cause)")
		}
		want := `hop: invalid recipient address "0xdead": bad checksum`
		if err.Error() != want {
			t.Errorf("Expected %q, got %q", want, err.Error())
		}
	})

	t.Run("without cause", func(t *testing.T) {
		err := &AddressError{Field: "owner", Address: ""}

		if !errors.Is(err, ErrUnauthorized) {
			t.Error("Expected errors.Is(err, ErrUnauthorized)")
		}
		want := `hop: invalid owner address ""`
		if err.Error() != want {
			t.Errorf("Expected %q, got %q", want, err.Error())
		}
	})
}

func TestEncodingError(t *testing.T) {
	cause := errors.New("unsupported")
	err := &EncodingError{Command: CommandTypeMint, Err: cause}

	if !errors.Is(err, ErrEncoding) {
		t.Error("Expected errors.Is(err, ErrEncoding)")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is(err, cause)")
	}
	if !strings.Contains(err.Error(), "mint") {
		t.Errorf("Expected command name in %q", err.Error())
	}
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{ReplyID: ChainReplyID, Message: "out of gas"}

	if !errors.Is(err, ErrUpstream) {
		t.Error("Expected errors.Is(err, ErrUpstream)")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("Expected upstream failure not to be unauthorized")
	}
	if err.Error() != "hop: reply 1: out of gas" {
		t.Errorf("Expected %q, got %q", "hop: reply 1: out of gas", err.Error())
	}
}

func TestReplyIDError(t *testing.T) {
	err := &ReplyIDError{ID: 7}

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("Expected errors.Is(err, ErrUnauthorized)")
	}
	if !strings.Contains(err.Error(), "7") {
		t.Errorf("Expected id in %q", err.Error())
	}
}

func TestMessageError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &MessageError{Err: cause}

	if !errors.Is(err, ErrInvalidMessage) || !errors.Is(err, cause) {
		t.Errorf("Expected both ErrInvalidMessage and cause, got %v", err)
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrUnauthorized,
		ErrMissingFunds,
		ErrUpstream,
		ErrEncoding,
		ErrInvalidMessage,
		ErrUnknownCommand,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("Expected %v and %v to be distinct", a, b)
			}
		}
	}
}
