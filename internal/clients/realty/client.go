package realty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/flatwatch/realty-bot/internal/resilience"
	"golang.org/x/time/rate"
)

type searchResponse struct {
	Listings []ListingPreview `json:"items"`
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the upstream listings provider. Every request goes through
// the rate limiter and, when set, the circuit breaker, so a tripped breaker
// rejects calls before any I/O happens.
type Client struct {
	baseURL     string
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
	breaker     *resilience.Breaker
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{}}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float32) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

func (c *Client) SetBreaker(breaker *resilience.Breaker) {
	c.breaker = breaker
}

// Search returns previews (external ids + publication times) of listings
// matching the filter envelope, one page at a time.
func (c *Client) Search(parameters SearchParameters) ([]ListingPreview, error) {

	if err := parameters.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	apiURL := c.baseURL + "/listings"
	params := parameters.ToUrlParams()

	body, err := c.sendRequest("GET", apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}

	return response.Listings, nil
}

func (c *Client) GetListing(id int64) (Listing, error) {

	apiURL := c.baseURL + "/listings/" + strconv.FormatInt(id, 10)

	body, err := c.sendRequest("GET", apiURL, nil)
	if err != nil {
		return Listing{}, err
	}

	var listing Listing
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&listing); err != nil {
		return Listing{}, fmt.Errorf("error decoding JSON response: %v", err)
	}

	return listing, nil
}

func (c *Client) GetCities() ([]City, error) {

	apiURL := c.baseURL + "/cities"

	body, err := c.sendRequest("GET", apiURL, nil)
	if err != nil {
		return nil, err
	}

	var cities []City
	if err = json.NewDecoder(bytes.NewReader(body)).Decode(&cities); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}

	return cities, nil
}

func (c *Client) sendRequest(method string, url string, body io.Reader) ([]byte, error) {

	if c.rateLimiter != nil {
		err := c.rateLimiter.Wait(context.Background())
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	var responseBody []byte
	doRequest := func() error {
		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			return fmt.Errorf("error sending request: %v", reqErr)
		}
		defer resp.Body.Close()

		responseBody, reqErr = c.handleResponse(resp)
		return reqErr
	}

	if c.breaker != nil {
		err = c.breaker.Do(doRequest)
	} else {
		err = doRequest()
	}
	if err != nil {
		return nil, err
	}

	return responseBody, nil
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %v, body: %v", resp.StatusCode, string(body))
	}

	return body, nil
}
