// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package cache holds rendered API responses between reconciliation cycles.

The REST handlers under /api/instagram cache their JSON bodies keyed by
route. Entries expire after a short TTL and the whole cache is cleared
whenever the engine publishes an update, so readers never see data older
than the last completed category.

Storage is a ristretto cache with cost measured in bytes, bounding memory by
MaxBytes rather than by entry count.

	c, err := cache.New(30*time.Second, 16<<20)
	if err != nil {
	    return err
	}
	defer c.Close()

	if body, ok := c.Get("posts"); ok {
	    w.Write(body)
	}
*/
package cache
