package auth

import (
	"context"
	"testing"
	"time"
)

func BenchmarkTokenCodec_Encode(b *testing.B) {
	codec, _ := NewTokenCodec(testSecret)
	claims := Claims{Subject: "u1", Email: "ada@example.com", Name: "Ada"}
	ttl := time.Hour

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Encode(claims, &ttl); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTokenCodec_Decode(b *testing.B) {
	codec, _ := NewTokenCodec(testSecret)
	ttl := time.Hour
	token, err := codec.Encode(Claims{Subject: "u1", Email: "ada@example.com"}, &ttl)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(token); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAuthenticator_ResolveFromToken(b *testing.B) {
	store := newFakeStore()
	a := newTestAuthenticator(b, store)
	u := store.addUser(b, a.Hasher(), "u1", "ada@example.com", "pw", UserStatusActive)
	token, err := a.IssueToken(u)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.ResolveFromToken(ctx, token); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAuthenticator_ResolveFromAPIKey(b *testing.B) {
	store := newFakeStore()
	a := newTestAuthenticator(b, store)
	_, value := store.addKey(b, "p1")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.ResolveFromAPIKey(ctx, value, "p1"); err != nil {
			b.Fatal(err)
		}
	}
}
