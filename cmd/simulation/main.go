package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bullionx/capital-api/internal/auth"
	"github.com/bullionx/capital-api/internal/database"
	"github.com/bullionx/capital-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serverAddress = "http://localhost:8080"

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// simulationClient handles HTTP communication with the capital API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// newSimulationClient creates a client and authenticates with the API
func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if !envelope.Success {
		return "", fmt.Errorf("authentication rejected")
	}

	return envelope.Data.Token, nil
}

// doRequest performs an authenticated request and returns the raw body
func (sc *simulationClient) doRequest(method, path string, payload interface{}) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

// seedScenario writes an exposure state that sits just inside the hardstop
// caution band, so the simulated run walks through THROTTLE and FREEZE modes
// as reservations are added.
func seedScenario() error {
	db, err := database.NewDatabase()
	if err != nil {
		return err
	}

	now := time.Now()

	if err := db.Create(&types.CapitalAccount{
		CapitalBase:   100_000_000,
		HardstopLimit: 50_000_000,
		TVaR99:        5_000_000,
		UpdatedAt:     now,
	}).Error; err != nil {
		return err
	}

	reservations := []types.Reservation{
		{ReservationID: "RSV_SIM_1", ListingID: "LST_1", ClientID: "client-1", State: types.ReservationActive, WeightGrams: 120_000, LockedPricePerGram: 85, CreatedAt: now, UpdatedAt: now},
		{ReservationID: "RSV_SIM_2", ListingID: "LST_1", ClientID: "client-2", State: types.ReservationConverted, WeightGrams: 180_000, LockedPricePerGram: 84, CreatedAt: now, UpdatedAt: now},
		{ReservationID: "RSV_SIM_3", ListingID: "LST_2", ClientID: "client-3", State: types.ReservationActive, WeightGrams: 90_000, LockedPricePerGram: 86, CreatedAt: now, UpdatedAt: now},
	}
	for i := range reservations {
		if err := db.Create(&reservations[i]).Error; err != nil {
			return err
		}
	}

	orders := []types.Order{
		{OrderID: "ORD_SIM_1", ListingID: "LST_1", ClientID: "client-1", Status: types.OrderOpen, WeightGrams: 50_000, PricePerGram: 85, CreatedAt: now, UpdatedAt: now},
		{OrderID: "ORD_SIM_2", ListingID: "LST_2", ClientID: "client-2", Status: types.OrderFilled, WeightGrams: 70_000, PricePerGram: 86, CreatedAt: now, UpdatedAt: now},
	}
	for i := range orders {
		if err := db.Create(&orders[i]).Error; err != nil {
			return err
		}
	}

	cases := []types.SettlementCase{
		{CaseID: "CSE_SIM_1", ClientID: "client-1", Status: types.CaseEscrowOpen, Notional: 9_500_000, CreatedAt: now, UpdatedAt: now},
		{CaseID: "CSE_SIM_2", ClientID: "client-2", Status: types.CaseSettled, Notional: 2_000_000, CreatedAt: now, UpdatedAt: now},
	}
	for i := range cases {
		if err := db.Create(&cases[i]).Error; err != nil {
			return err
		}
	}

	if err := db.Create(&types.Counterparty{CounterpartyID: "CPT_SIM_1", Name: "Aurex Trading", Status: types.StatusActive, RiskLevel: types.RiskHigh, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		return err
	}
	if err := db.Create(&types.Corridor{CorridorID: "COR_SIM_1", Name: "ZRH-DXB", Status: types.StatusActive, RiskLevel: types.RiskMedium, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		return err
	}
	if err := db.Create(&types.Hub{HubID: "HUB_SIM_1", Name: "Zurich Vault", Status: types.StatusActive, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		return err
	}

	return nil
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := seedScenario(); err != nil {
			log.Fatal().Err(err).Msg("failed to seed scenario")
		}
		log.Info().Msg("scenario seeded")
		return
	}

	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create simulation client")
	}

	// Walk the read surface
	for _, path := range []string{
		"/api/v1/capital/snapshot",
		"/api/v1/capital/decision",
		"/api/v1/capital/breaches",
	} {
		body, status, err := sc.doRequest(http.MethodGet, path, nil)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("request failed")
			continue
		}
		log.Info().Str("path", path).Int("status", status).RawJSON("body", body).Msg("response")
	}

	// Score a transaction
	body, status, err := sc.doRequest(http.MethodPost, "/api/v1/capital/tri", map[string]interface{}{
		"counterparty_id": "CPT_SIM_1",
		"corridor_id":     "COR_SIM_1",
		"hub_id":          "HUB_SIM_1",
		"amount_notional": 5_000_000,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("TRI request failed")
	}
	log.Info().Int("status", status).RawJSON("body", body).Msg("TRI assessment")

	// Attempt an action-scoped override
	body, status, err = sc.doRequest(http.MethodPost, "/api/v1/capital/overrides", map[string]interface{}{
		"scope":      "ACTION",
		"action_key": "CREATE_RESERVATION",
		"reason":     "Simulation: verified client pipeline, temporary relief",
		"expires_at": time.Now().Add(30 * time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("override request failed")
	}
	log.Info().Int("status", status).RawJSON("body", body).Msg("override creation")

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			OverrideID string `json:"override_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Success {
		body, status, err = sc.doRequest(http.MethodDelete,
			"/api/v1/capital/overrides/"+envelope.Data.OverrideID, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("revoke request failed")
		}
		log.Info().Int("status", status).RawJSON("body", body).Msg("override revocation")
	}

	log.Info().Msg("simulation complete")
}
