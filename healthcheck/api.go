// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gosimple/slug"
	"github.com/penny-vault/nsedata/pkginfo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultAPIURL  = "https://healthchecks.io/api/v3"
	DefaultPingURL = "https://hc-ping.com"
)

var (
	ErrStatus = errors.New("status code is invalid")
)

// Client talks to the healthchecks.io management and ping APIs
type Client struct {
	APIKey  string
	APIURL  string
	PingURL string

	client *resty.Client
}

func New(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		APIURL:  DefaultAPIURL,
		PingURL: DefaultPingURL,
		client:  resty.New().SetHeader("User-Agent", pkginfo.UserAgent()),
	}
}

// NewFromConfig creates a client using the healthchecks.* configuration keys
func NewFromConfig() *Client {
	client := New(viper.GetString("healthchecks.apikey"))
	if apiURL := viper.GetString("healthchecks.api_url"); apiURL != "" {
		client.APIURL = strings.TrimRight(apiURL, "/")
	}
	if pingURL := viper.GetString("healthchecks.ping_url"); pingURL != "" {
		client.PingURL = strings.TrimRight(pingURL, "/")
	}
	return client
}

type createReq struct {
	APIKey      string   `json:"api_key"`
	Name        string   `json:"name"`
	Description string   `json:"desc,omitempty"`
	Grace       int      `json:"grace"`
	Schedule    string   `json:"schedule"`
	Slug        string   `json:"slug"`
	Tags        string   `json:"tags"`
	Timezone    string   `json:"tz"`
	Unique      []string `json:"unique"`
}

type createResp struct {
	PingURL string `json:"ping_url"`
}

// Create a new healthchecks.io check that expects a ping on the cron schedule
// and return its id. Creating a check with an existing name returns the
// existing check.
func (hc *Client) Create(name string, tags []string, schedule string) (string, error) {
	command := createReq{
		APIKey:   hc.APIKey,
		Name:     name,
		Slug:     slug.Make(name),
		Tags:     strings.Join(tags, " "),
		Grace:    3600,
		Schedule: schedule,
		Timezone: "Asia/Kolkata",
		Unique:   []string{"name"},
	}

	result := createResp{}

	resp, err := hc.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(command).
		SetResult(&result).
		Post(hc.APIURL + "/checks/")

	if err != nil {
		return "", err
	}

	if resp.StatusCode() > 201 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	checkID := strings.Split(result.PingURL, "/")
	healthCheckID := checkID[len(checkID)-1]

	return healthCheckID, nil
}

// Delete removes a health check
func (hc *Client) Delete(id string) error {
	resp, err := hc.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", hc.APIKey).
		Delete(fmt.Sprintf("%s/checks/%s", hc.APIURL, id))

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}

// Start signals that the job monitored by id has begun
func (hc *Client) Start(ctx context.Context, id string) error {
	return hc.ping(ctx, id, "/start", "")
}

// Ping signals that the job monitored by id completed successfully
func (hc *Client) Ping(ctx context.Context, id string) error {
	return hc.ping(ctx, id, "", "")
}

// Fail signals that the job monitored by id failed. message is attached to
// the ping as its body.
func (hc *Client) Fail(ctx context.Context, id, message string) error {
	return hc.ping(ctx, id, "/fail", message)
}

// ping is a no-op for an empty id so callers do not need to check whether
// monitoring is configured
func (hc *Client) ping(ctx context.Context, id, suffix, body string) error {
	if id == "" {
		return nil
	}

	resp, err := hc.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("%s/%s%s", hc.PingURL, id, suffix))

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	log.Debug().Str("CheckID", id).Str("Signal", strings.TrimPrefix(suffix, "/")).Msg("pinged health check")
	return nil
}
