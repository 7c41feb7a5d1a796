package audit

// BuildReceipt summarizes a verification outcome in a shape external
// systems can archive. The verification reference is included unless the
// caller strips it.
func BuildReceipt(record *Record, result VerificationResult, includeReference bool) map[string]any {
	receipt := map[string]any{
		"audit_event":     record.EventID.String(),
		"verified":        result.Verified(),
		"signature_valid": result.SignatureValid,
		"rekor_included":  result.RekorIncluded,
		"failure_reason":  result.FailureReason,
	}
	if includeReference {
		receipt["verification_reference"] = record.VerificationURL
	}
	return receipt
}

// ReceiptJSON renders a receipt as compact JSON with sorted keys, stable
// across processes.
func ReceiptJSON(receipt map[string]any) (string, error) {
	data, err := MarshalCanonical(receipt)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
