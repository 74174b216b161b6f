package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Solar Telemetry Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	rowSchema := map[string]interface{}{
		"type":        "object",
		"description": "One spreadsheet row as a column-name to cell-value mapping",
		"additionalProperties": map[string]string{
			"type": "string",
		},
	}

	validationResultSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"rows": map[string]interface{}{
				"type":        "array",
				"description": "All rows, normalized (meter rows also carry derived fields)",
				"items":       rowSchema,
			},
			"errors": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"row_number": map[string]string{"type": "integer"},
						"errors": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"type": "string"},
						},
					},
				},
			},
			"is_valid": map[string]string{"type": "boolean"},
		},
	}

	rowsRequestBody := map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"rows": map[string]interface{}{
							"type":  "array",
							"items": rowSchema,
						},
					},
				},
			},
		},
	}

	streamParam := map[string]interface{}{
		"name":        "stream",
		"in":          "path",
		"description": "Data stream: weather or meter",
		"required":    true,
		"schema":      map[string]interface{}{"type": "string", "enum": []string{"weather", "meter"}},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Solar Telemetry Platform API",
			"description": "Spreadsheet ingestion, validation and correlation engine for solar plant weather and meter telemetry",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Solar Telemetry Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/{stream}/upload": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Upload a telemetry spreadsheet",
					"description": "Parse an .xlsx export, validate every row, and return the normalized rows with the defect list",
					"parameters":  []map[string]interface{}{streamParam},
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"multipart/form-data": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"file": map[string]string{"type": "string", "format": "binary"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Validation result",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": validationResultSchema},
							},
						},
						"422": map[string]interface{}{"description": "File could not be parsed as a spreadsheet"},
					},
				},
			},
			"/api/{stream}/validate": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Re-validate an edited batch",
					"description": "Run the full validation pass over a JSON row set, typically after client-side corrections",
					"parameters":  []map[string]interface{}{streamParam},
					"requestBody": rowsRequestBody,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Validation result",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": validationResultSchema},
							},
						},
					},
				},
			},
			"/api/{stream}/submit": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Submit a batch",
					"description": "Validate the rows and persist them if defect-free; duplicate (date, time) keys update in place",
					"parameters":  []map[string]interface{}{streamParam},
					"requestBody": rowsRequestBody,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Submission counts",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"inserted": map[string]string{"type": "integer"},
											"updated":  map[string]string{"type": "integer"},
											"skipped":  map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
						"422": map[string]interface{}{
							"description": "Batch has validation errors; the body carries the full validation result",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{"schema": validationResultSchema},
							},
						},
					},
				},
			},
			"/api/{stream}/error-report": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Download an error report",
					"description": "Validate the rows and return the defective ones as an .xlsx download",
					"parameters":  []map[string]interface{}{streamParam},
					"requestBody": rowsRequestBody,
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Error report spreadsheet",
							"content": map[string]interface{}{
								"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": map[string]interface{}{
									"schema": map[string]string{"type": "string", "format": "binary"},
								},
							},
						},
					},
				},
			},
			"/api/weather": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get weather samples",
					"description": "Retrieve submitted weather samples with filtering and pagination",
					"parameters": []map[string]interface{}{
						{
							"name":        "site",
							"in":          "query",
							"description": "Filter by site name",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "date",
							"in":          "query",
							"description": "Filter by sample date (DD-MMM-YY)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default: 1)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Records per page (default: 100)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 100},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paginated weather samples"},
					},
				},
				"delete": map[string]interface{}{
					"summary":     "Delete weather samples for a date",
					"description": "Remove every sample for one site and date, whichever dialect the date is given in",
					"parameters": []map[string]interface{}{
						{
							"name":     "site",
							"in":       "query",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
						{
							"name":     "date",
							"in":       "query",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Deleted row count"},
					},
				},
			},
			"/api/meter": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get meter records",
					"description": "Retrieve submitted daily meter records with filtering and pagination",
					"parameters": []map[string]interface{}{
						{
							"name":        "site",
							"in":          "query",
							"description": "Filter by site name",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "date",
							"in":          "query",
							"description": "Filter by record date (DD-MM-YYYY)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paginated meter records"},
					},
				},
			},
			"/api/summaries": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get operations summaries",
					"description": "Retrieve per-site monthly rollups of operating time and net export",
					"parameters": []map[string]interface{}{
						{
							"name":     "site",
							"in":       "query",
							"required": false,
							"schema":   map[string]string{"type": "string"},
						},
						{
							"name":        "month",
							"in":          "query",
							"description": "Filter by month (YYYY-MM)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paginated summaries"},
					},
				},
			},
			"/api/summaries/recalculate": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Recalculate operations summaries",
					"description": "Recompute every site's monthly rollups from the submitted meter records",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Recalculation completed"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are reachable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
