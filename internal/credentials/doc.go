// Package credentials resolves the storage account, container and SAS token
// used to download raw files.
//
// Each field is taken from the first source defining it, in this order:
//   - explicit values (command line flags)
//   - the process environment (ACCOUNT_NAME, CONTAINER_NAME, AZURE_SAS_TOKEN)
//   - a dotenv file, by default .env in the working directory
//
// A field found in a source is never replaced by a later one.
package credentials
