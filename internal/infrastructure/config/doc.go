// Package config loads and validates LockerRoom Core configuration.
//
// Configuration comes from three layers, later layers overriding earlier:
//
//  1. Hardcoded defaults
//  2. A YAML file
//  3. LOCKERROOM_* environment variables
//
// The loaded Config is immutable for the lifetime of the process.
package config
