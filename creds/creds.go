/*
DESCRIPTION
  creds.go provides persistent on-device storage of network and cloud
  store credentials, backed by a local badger key-value store.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package creds provides persistent on-device credential storage for the
// WiFi network and the cloud image store. Credentials survive restarts
// and firmware updates, so a device provisioned once keeps reporting.
package creds

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys. These names are stable; changing them orphans
// credentials already provisioned in the field.
const (
	keyWiFiSSID     = "cred:wifi_ssid"
	keyWiFiPass     = "cred:wifi_pass"
	keyCloudProject = "cred:fb_project"
	keyCloudDBURL   = "cred:fb_db_url"
	keyCloudAPIKey  = "cred:fb_api_key"
)

// Maximum stored lengths in bytes. These match the fixed field widths of
// the provisioning tooling; longer values indicate corrupt input.
const (
	maxSSIDLen    = 32
	maxPassLen    = 64
	maxProjectLen = 64
	maxDBURLLen   = 128
	maxAPIKeyLen  = 128
)

// ErrNotFound is returned when a requested credential has never been
// stored.
var ErrNotFound = errors.New("credential not found")

// Credentials holds the full provisioning set for a device.
type Credentials struct {
	WiFiSSID     string
	WiFiPass     string
	CloudProject string
	CloudDBURL   string
	CloudAPIKey  string
}

// Store is a persistent credential store over a local badger database.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the credential store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open credential store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Exist reports whether a complete credential set has been provisioned.
func (s *Store) Exist() (bool, error) {
	keys := []string{keyWiFiSSID, keyWiFiPass, keyCloudProject, keyCloudDBURL, keyCloudAPIKey}
	exist := true
	err := s.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			_, err := txn.Get([]byte(k))
			if err == badger.ErrKeyNotFound {
				exist = false
				return nil
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("could not check credentials: %w", err)
	}
	return exist, nil
}

// Load reads the full credential set. ErrNotFound is returned if any
// credential is missing.
func (s *Store) Load() (*Credentials, error) {
	var c Credentials
	fields := []struct {
		key string
		dst *string
	}{
		{keyWiFiSSID, &c.WiFiSSID},
		{keyWiFiPass, &c.WiFiPass},
		{keyCloudProject, &c.CloudProject},
		{keyCloudDBURL, &c.CloudDBURL},
		{keyCloudAPIKey, &c.CloudAPIKey},
	}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, f := range fields {
			item, err := txn.Get([]byte(f.key))
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, f.key)
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				*f.dst = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("could not load credentials: %w", err)
	}
	return &c, nil
}

// Save writes the full credential set, validating field lengths first.
func (s *Store) Save(c *Credentials) error {
	if c == nil {
		return errors.New("credentials must not be nil")
	}
	err := s.SetWiFi(c.WiFiSSID, c.WiFiPass)
	if err != nil {
		return err
	}
	return s.SetCloud(c.CloudProject, c.CloudDBURL, c.CloudAPIKey)
}

// SetWiFi stores the WiFi network credentials.
func (s *Store) SetWiFi(ssid, pass string) error {
	err := checkLen("wifi ssid", ssid, maxSSIDLen)
	if err != nil {
		return err
	}
	err = checkLen("wifi pass", pass, maxPassLen)
	if err != nil {
		return err
	}
	return s.put(map[string]string{keyWiFiSSID: ssid, keyWiFiPass: pass})
}

// SetCloud stores the cloud image store credentials.
func (s *Store) SetCloud(project, dbURL, apiKey string) error {
	err := checkLen("cloud project", project, maxProjectLen)
	if err != nil {
		return err
	}
	err = checkLen("cloud db url", dbURL, maxDBURLLen)
	if err != nil {
		return err
	}
	err = checkLen("cloud api key", apiKey, maxAPIKeyLen)
	if err != nil {
		return err
	}
	return s.put(map[string]string{
		keyCloudProject: project,
		keyCloudDBURL:   dbURL,
		keyCloudAPIKey:  apiKey,
	})
}

// EraseAll removes every stored credential, returning the device to the
// unprovisioned state.
func (s *Store) EraseAll() error {
	keys := []string{keyWiFiSSID, keyWiFiPass, keyCloudProject, keyCloudDBURL, keyCloudAPIKey}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			err := txn.Delete([]byte(k))
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not erase credentials: %w", err)
	}
	return nil
}

func (s *Store) put(kv map[string]string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for k, v := range kv {
			err := txn.Set([]byte(k), []byte(v))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not store credentials: %w", err)
	}
	return nil
}

func checkLen(name, v string, max int) error {
	if v == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if len(v) > max {
		return fmt.Errorf("%s exceeds %d bytes", name, max)
	}
	return nil
}
