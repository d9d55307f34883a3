package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// Result is the outcome of comparing a candidate password with a stored hash.
type Result int

const (
	Failure Result = iota
	Match
	NoMatch
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case NoMatch:
		return "no_match"
	default:
		return "failure"
	}
}

// HashPassword hashes plain with bcrypt. Runs off the caller's goroutine so a
// cancelled request does not wait for the hash to finish.
func HashPassword(ctx context.Context, plain string) (string, error) {
	type outcome struct {
		hash []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
		done <- outcome{hash: hash, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		if o.err != nil {
			return "", fmt.Errorf("hashing password: %w", o.err)
		}
		return string(o.hash), nil
	}
}

// ComparePassword reports whether plain matches hash. A wrong password is
// NoMatch with a nil error; any other bcrypt error is a Failure.
func ComparePassword(ctx context.Context, hash, plain string) (Result, error) {
	done := make(chan error, 1)
	go func() {
		done <- bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	}()

	select {
	case <-ctx.Done():
		return Failure, ctx.Err()
	case err := <-done:
		switch {
		case err == nil:
			return Match, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return NoMatch, nil
		default:
			return Failure, fmt.Errorf("comparing password: %w", err)
		}
	}
}
