//go:build integration

/*
Package testutil provides testing utilities for integration tests with external services.

# Overview

This package contains infrastructure for running integration tests against a real
Postgres instance using testcontainers. The serializable-isolation behaviors the
store depends on (row locks on the order-number counter, SQLSTATE 40001 retries,
partial unique indexes) only exist on a real Postgres, so tests that assert them
run here.

# Usage

	func TestMain(m *testing.M) {
		ctx := context.Background()

		pg, err := testutil.StartPostgresContainer(ctx)
		if err != nil {
			log.Fatal(err)
		}

		code := m.Run()

		pg.Stop(ctx)
		os.Exit(code)
	}

	func TestSomething(t *testing.T) {
		st := pg.OpenStore(t)
		// ...
	}

# Build Tags

This package uses the `integration` build tag to prevent accidental inclusion
in regular test runs. Integration tests require Docker and take longer to run.

Run integration tests with:

	go test -tags=integration ./...
*/
package testutil
