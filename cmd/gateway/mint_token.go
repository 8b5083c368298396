package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JMAlloway/Check-sub001/internal/token"
)

// mintToken is a development helper: it generates an RSA keypair, signs a
// short-lived access token for the given resource, and prints both the token
// and the public key PEM so the connector can be registered against it.
func mintToken(args []string) {
	fs := flag.NewFlagSet("mint-token", flag.ExitOnError)
	connectorID := fs.String("connector", "", "Connector ID (token audience)")
	tenantID := fs.String("tenant", "dev-tenant", "Tenant ID claim")
	userID := fs.String("user", "dev-user", "User ID claim")
	path := fs.String("path", "", "Physical image path to authorize")
	trace := fs.String("trace", "", "Trace number to authorize")
	date := fs.String("date", "", "Item date (YYYY-MM-DD) to authorize")
	side := fs.String("side", "front", "Image side (front or back)")
	lifetime := fs.Int("lifetime", 120, "Token lifetime in seconds")
	keyFile := fs.String("key", "", "PEM file with an existing RSA private key (generates one if empty)")
	fs.Parse(args)

	if *connectorID == "" {
		fmt.Fprintln(os.Stderr, "mint-token: -connector is required")
		os.Exit(1)
	}
	if *path == "" && *trace == "" {
		fmt.Fprintln(os.Stderr, "mint-token: one of -path or -trace is required")
		os.Exit(1)
	}

	priv, err := loadOrGenerateKey(*keyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint-token: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	claims := token.Claims{
		TenantID: *tenantID,
		UserID:   *userID,
		Resource: token.Resource{
			Path:  *path,
			Trace: *trace,
			Date:  *date,
			Side:  *side,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{*connectorID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(*lifetime) * time.Second)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint-token: sign failed: %v\n", err)
		os.Exit(1)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint-token: %v\n", err)
		os.Exit(1)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	fmt.Printf("Token:\n%s\n\nPublic key PEM:\n%s", signed, pubPEM)
}

func loadOrGenerateKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return rsa.GenerateKey(rand.Reader, 2048)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s is not an RSA private key", path)
	}
	return key, nil
}
