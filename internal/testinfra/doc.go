// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package testinfra provides test infrastructure shared by package tests.
//
// # Fake Graph API
//
// GraphServer is an httptest server that answers registered paths with
// canned JSON and records every request:
//
//	g := testinfra.NewGraphServer(t)
//	g.Handle("/17841400000000000", `{"followers_count":1000}`)
//	client := graph.NewClient(&config.GraphConfig{
//	    BaseURL:    g.URL(),
//	    APIVersion: testinfra.GraphAPIVersion,
//	    Timeout:    5 * time.Second,
//	})
//
// # Database Containers
//
// Built with the integration tag, NewMongoContainer and NewPostgresContainer
// start real databases through testcontainers-go for the store contract
// suite:
//
//	go test -tags integration ./internal/store/...
//
// These tests require Docker and are skipped when it is unavailable. First
// runs download the images.
package testinfra
