package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pawfinderz-backend/internal/emailconfig"
	"github.com/angelmondragon/pawfinderz-backend/internal/settings"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
)

type stubEmailConfigs struct {
	EmailConfigService
	created   emailconfig.CreateInput
	updated   emailconfig.UpdateInput
	activated uuid.UUID
}

func (s *stubEmailConfigs) Create(_ context.Context, input emailconfig.CreateInput) (*emailconfig.ConfigDTO, error) {
	s.created = input
	return &emailconfig.ConfigDTO{ID: uuid.New(), Provider: enums.EmailProvider(input.Provider), IsActive: input.IsActive, FromAddress: input.FromAddress}, nil
}

func (s *stubEmailConfigs) Update(_ context.Context, id uuid.UUID, input emailconfig.UpdateInput) (*emailconfig.ConfigDTO, error) {
	s.updated = input
	return &emailconfig.ConfigDTO{ID: id}, nil
}

func (s *stubEmailConfigs) Activate(_ context.Context, id uuid.UUID) (*emailconfig.ConfigDTO, error) {
	s.activated = id
	return &emailconfig.ConfigDTO{ID: id, IsActive: true}, nil
}

func TestAdminCreateEmailConfigurationCarriesIsActive(t *testing.T) {
	svc := &stubEmailConfigs{}
	body := `{"provider":"smtp","from_address":"ops@example.com","is_active":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/email-configurations", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AdminCreateEmailConfiguration(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.True(t, svc.created.IsActive)
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, true, envelope.Data["is_active"])
	require.NotContains(t, envelope.Data, "status")
}

func TestAdminCreateEmailConfigurationValidatesProvider(t *testing.T) {
	body := `{"provider":"carrier-pigeon","from_address":"ops@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AdminCreateEmailConfiguration(&stubEmailConfigs{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminUpdateEmailConfigurationLeavesOmittedFlag(t *testing.T) {
	svc := &stubEmailConfigs{}
	req := addRouteParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"from_name":"PawFinderz"}`)), "configId", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminUpdateEmailConfiguration(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Nil(t, svc.updated.IsActive)
	require.True(t, svc.updated.FromName.Valid)
	require.Equal(t, "PawFinderz", *svc.updated.FromName.Value)
}

func TestAdminUpdateEmailConfigurationNullClearsFromName(t *testing.T) {
	svc := &stubEmailConfigs{}
	req := addRouteParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"from_name":null}`)), "configId", uuid.NewString())
	resp := httptest.NewRecorder()
	AdminUpdateEmailConfiguration(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, svc.updated.FromName.Valid)
	require.Nil(t, svc.updated.FromName.Value)
}

func TestAdminActivateEmailConfiguration(t *testing.T) {
	svc := &stubEmailConfigs{}
	id := uuid.New()
	req := addRouteParam(httptest.NewRequest(http.MethodPost, "/", nil), "configId", id.String())
	resp := httptest.NewRecorder()
	AdminActivateEmailConfiguration(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, id, svc.activated)
}

type stubSettings struct {
	values map[string]settings.SettingDTO
}

func (s *stubSettings) GetPublic(_ context.Context, key string) (*settings.SettingDTO, error) {
	dto, ok := s.values[key]
	if !ok || !dto.IsPublic {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
	}
	return &dto, nil
}

func (s *stubSettings) Set(_ context.Context, key string, input settings.SetInput) (*settings.SettingDTO, error) {
	dto := settings.SettingDTO{Key: key, Value: input.Value, IsPublic: input.IsPublic}
	s.values[key] = dto
	return &dto, nil
}

func (s *stubSettings) All(context.Context) ([]settings.SettingDTO, error) {
	out := make([]settings.SettingDTO, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, v)
	}
	return out, nil
}

func TestSettingsPutThenPublicRead(t *testing.T) {
	svc := &stubSettings{values: map[string]settings.SettingDTO{}}

	put := addRouteParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"value":"true","is_public":true}`)), "key", "placements_enabled")
	resp := httptest.NewRecorder()
	AdminPutSetting(svc, testLogger())(resp, put)
	require.Equal(t, http.StatusOK, resp.Code)

	get := addRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "key", "placements_enabled")
	resp = httptest.NewRecorder()
	GetPublicSetting(svc, testLogger())(resp, get)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"value":"true"`)
}

func TestGetPublicSettingHidesPrivateKeys(t *testing.T) {
	svc := &stubSettings{values: map[string]settings.SettingDTO{"smtp_pool": {Key: "smtp_pool", Value: "4"}}}
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "key", "smtp_pool")
	resp := httptest.NewRecorder()
	GetPublicSetting(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
