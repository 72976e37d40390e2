package handler

import (
	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/ports"
)

func toAddress(a addressRequest) domain.Address {
	out := domain.Address{
		Name:  a.Name,
		Phone: a.Phone,
		City:  a.City,
		Area:  a.Area,
		Line:  a.Line,
	}
	if a.Coordinates != nil {
		out.Coordinates = &domain.Coordinates{Lat: a.Coordinates.Lat, Lng: a.Coordinates.Lng}
	}
	return out
}

func toAddressPtr(a *addressRequest) *domain.Address {
	if a == nil {
		return nil
	}
	out := toAddress(*a)
	return &out
}

func toCreateInput(req createShipmentRequest, merchantID, idempotencyKey string) ports.CreateShipmentInput {
	return ports.CreateShipmentInput{
		MerchantID:     merchantID,
		Sender:         toAddress(req.Sender),
		Receiver:       toAddress(req.Receiver),
		WeightKg:       req.WeightKg,
		ServiceTier:    domain.ServiceTier(req.ServiceTier),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		CODAmount:      domain.Money(req.CODAmount),
		IdempotencyKey: idempotencyKey,
	}
}

func toUpdateInput(awb, actor string, req updateShipmentRequest) ports.UpdateShipmentInput {
	in := ports.UpdateShipmentInput{
		AWB:      awb,
		Actor:    actor,
		Sender:   toAddressPtr(req.Sender),
		Receiver: toAddressPtr(req.Receiver),
		WeightKg: req.WeightKg,
	}
	if req.ServiceTier != nil {
		tier := domain.ServiceTier(*req.ServiceTier)
		in.ServiceTier = &tier
	}
	if req.CODAmount != nil {
		cod := domain.Money(*req.CODAmount)
		in.CODAmount = &cod
	}
	return in
}

func toQuoteInput(req quoteRequest) ports.QuoteInput {
	return ports.QuoteInput{
		WeightKg:    req.WeightKg,
		ServiceTier: domain.ServiceTier(req.ServiceTier),
		CODAmount:   domain.Money(req.CODAmount),
		DistanceKm:  req.DistanceKm,
		Sender:      toAddressPtr(req.Sender),
		Receiver:    toAddressPtr(req.Receiver),
	}
}

func toRawSample(req locationRequest) domain.RawLocationSample {
	return domain.RawLocationSample{
		RiderID:      req.RiderID,
		AWB:          req.AWB,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		Speed:        req.Speed,
		Heading:      req.Heading,
		BatteryLevel: req.BatteryLevel,
		CapturedAt:   req.CapturedAt,
	}
}

func toEventInput(r statusEventRequest) ports.StatusEventInput {
	return ports.StatusEventInput{
		AWB:       r.AWB,
		Status:    r.Status,
		Timestamp: r.Timestamp,
		Source:    r.Source,
		Notes:     r.Notes,
	}
}

func toShipmentResponse(s *domain.Shipment, quote *domain.PricingQuote) shipmentResponse {
	return shipmentResponse{
		Shipment: s,
		Quote:    quote,
		Links: shipmentLinks{
			Self:      "/v1/shipments/" + s.AWB,
			Locations: "/v1/shipments/" + s.AWB + "/locations",
		},
	}
}
