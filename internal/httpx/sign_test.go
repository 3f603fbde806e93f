package httpx

import "testing"

func TestSignKnownVector(t *testing.T) {
	got := Sign(
		"test-secret-key",
		"2024-01-15T10:30:00.000Z",
		"GET",
		"/api/v5/dex/aggregator/quote?amount=1000000&chainId=501",
	)
	want := "3Ykb6jWWjheg4ngk3hcQPA9o+09dYGLcchJ2J3XCQSg="
	if got != want {
		t.Fatalf("unexpected signature: got %s want %s", got, want)
	}
}

func TestSignIncludesQueryString(t *testing.T) {
	bare := Sign("secret", "2024-01-15T10:30:00.000Z", "GET", "/api/v5/dex/aggregator/quote")
	withQuery := Sign("secret", "2024-01-15T10:30:00.000Z", "GET", "/api/v5/dex/aggregator/quote?chainId=501")
	if bare == withQuery {
		t.Fatal("expected query string to change the signature")
	}
}

func TestHeadersCarryFullAuthSet(t *testing.T) {
	creds := Credentials{
		APIKey:     "key",
		SecretKey:  "secret",
		Passphrase: "phrase",
		ProjectID:  "project",
	}
	headers := creds.Headers("2024-01-15T10:30:00.000Z", "GET", "/api/v5/dex/aggregator/quote")

	if headers["OK-ACCESS-KEY"] != "key" {
		t.Fatalf("unexpected api key header: %s", headers["OK-ACCESS-KEY"])
	}
	if headers["OK-ACCESS-TIMESTAMP"] != "2024-01-15T10:30:00.000Z" {
		t.Fatalf("unexpected timestamp header: %s", headers["OK-ACCESS-TIMESTAMP"])
	}
	if headers["OK-ACCESS-PASSPHRASE"] != "phrase" {
		t.Fatalf("unexpected passphrase header: %s", headers["OK-ACCESS-PASSPHRASE"])
	}
	if headers["OK-ACCESS-PROJECT"] != "project" {
		t.Fatalf("unexpected project header: %s", headers["OK-ACCESS-PROJECT"])
	}
	want := Sign("secret", "2024-01-15T10:30:00.000Z", "GET", "/api/v5/dex/aggregator/quote")
	if headers["OK-ACCESS-SIGN"] != want {
		t.Fatalf("unexpected signature header: %s", headers["OK-ACCESS-SIGN"])
	}
}
