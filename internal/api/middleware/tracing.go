package middleware

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// fleetQueryAttributes maps query parameters that identify fleet assets to
// span attributes.
var fleetQueryAttributes = map[string]attribute.Key{
	"vehicleId": "fleet.vehicle_id",
	"trailerId": "fleet.trailer_id",
	"province":  "fleet.province",
}

// Tracing starts a server span per request on the serviceName tracer,
// continuing any trace context sent by the caller. The span is renamed to
// "<METHOD> <route>" once chi has matched the route.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(r)...),
			)
			defer span.End()

			if requestID := GetRequestID(ctx); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}
			if clientID := GetClientID(ctx); clientID != "" {
				span.SetAttributes(attribute.String("client.id", clientID))
			}

			wrapped := newStatusWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", wrapped.statusCode),
				attribute.Int64("http.response.body.size", wrapped.written),
			)

			switch {
			case wrapped.statusCode >= 500:
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			case wrapped.statusCode >= 400:
				span.SetAttributes(attribute.String("error.type", strconv.Itoa(wrapped.statusCode)))
			}
		})
	}
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", r.Method),
		attribute.String("url.scheme", scheme(r)),
		attribute.String("url.path", r.URL.Path),
		attribute.String("server.address", r.Host),
		attribute.String("user_agent.original", r.UserAgent()),
		attribute.String("client.address", r.RemoteAddr),
	}

	query := r.URL.Query()
	for param, key := range fleetQueryAttributes {
		if v := query.Get(param); v != "" {
			attrs = append(attrs, key.String(v))
		}
	}
	return attrs
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
