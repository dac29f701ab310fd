// Querykit is the command line companion of the querykit server.
//
// Usage:
//
//	# Hash an admin key for ADMIN_KEY_HASH
//	querykit adminkey hash
//
//	# Mint an API key directly in the database
//	querykit apikey create --team <uuid> --name ci --permissions entity:read
//
//	# Run a query against entities exported to a JSON file
//	querykit query --file entities.json --filter status=active --sort priority --order desc
package main

func main() {
	Execute()
}
