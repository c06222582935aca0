// Package cli provides the baynext administration command-line interface.
//
// Commands read the same configuration as the API server (environment
// variables and BAYNEXT_CONFIG_FILE), so they act on the deployment's store
// and sign tokens with its secret. With the memory store nothing persists
// between invocations; use postgres or sqlite3.
//
// # Commands
//
// migrate: Apply pending SQL migrations
//
//	baynext migrate
//
// hash-password: Print a bcrypt hash, reading the password from stdin
//
//	echo -n 's3cret' | baynext hash-password -cost 12
//
// create-user: Create an active user
//
//	baynext create-user -email ada@example.com -name "Ada" -password s3cret
//
// token: Issue a bearer token, by user ID or email
//
//	baynext token -user ada@example.com
//	baynext token -user 0b6f... -no-expiry   # service token
//
// create-key: Create a project API key and print its secret once
//
//	baynext create-key -project p1 -name ci -permissions pipeline:run -expires-in 720h
//
// sweep-keys: Deactivate expired keys now instead of waiting for the schedule
//
//	baynext sweep-keys
package cli
