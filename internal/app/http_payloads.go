package app

import (
	"github.com/r-alnz/Docurate-sub000/internal/store"
)

// Wire payloads use camelCase keys; store models stay tag-free.

func templatePayload(tpl store.Template) map[string]any {
	return map[string]any{
		"id":             tpl.ID,
		"organizationId": tpl.OrganizationID,
		"name":           tpl.Name,
		"type":           tpl.Type,
		"subtype":        tpl.Subtype,
		"requiredRole":   tpl.RequiredRole,
		"paperSize":      tpl.PaperSize,
		"margins":        tpl.Margins,
		"content":        tpl.Content,
		"status":         tpl.Status,
		"createdAt":      tpl.CreatedAt,
		"updatedAt":      tpl.UpdatedAt,
	}
}

func templatePayloads(templates []store.Template) []map[string]any {
	out := make([]map[string]any, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, templatePayload(tpl))
	}
	return out
}

func templateHeaderPayload(h store.TemplateHeader) map[string]any {
	return map[string]any{
		"id":             h.ID,
		"organizationId": h.OrganizationID,
		"name":           h.Name,
		"type":           h.Type,
		"subtype":        h.Subtype,
		"requiredRole":   h.RequiredRole,
		"paperSize":      h.PaperSize,
		"margins":        h.Margins,
		"headerImageKey": h.HeaderImageKey,
		"footerImageKey": h.FooterImageKey,
	}
}

func documentPayload(doc store.Document) map[string]any {
	return map[string]any{
		"id":             doc.ID,
		"templateId":     doc.TemplateID,
		"organizationId": doc.OrganizationID,
		"userId":         doc.UserID,
		"title":          doc.Title,
		"content":        doc.Content,
		"createdAt":      doc.CreatedAt,
		"updatedAt":      doc.UpdatedAt,
	}
}

func documentPayloads(documents []store.Document) []map[string]any {
	out := make([]map[string]any, 0, len(documents))
	for _, doc := range documents {
		out = append(out, documentPayload(doc))
	}
	return out
}

func documentDetailPayload(detail store.DocumentDetail) map[string]any {
	payload := documentPayload(detail.Document)
	payload["template"] = map[string]any{
		"name":      detail.TemplateName,
		"paperSize": detail.TemplatePaperSize,
		"margins":   detail.TemplateMargins,
	}
	payload["organizationName"] = detail.OrganizationName
	payload["owner"] = map[string]any{
		"firstName": detail.OwnerFirstName,
		"lastName":  detail.OwnerLastName,
	}
	return payload
}

func revisionPayload(rev store.Revision) map[string]any {
	return map[string]any{
		"id":             rev.ID,
		"documentId":     rev.DocumentID,
		"userId":         rev.UserID,
		"organizationId": rev.OrganizationID,
		"name":           rev.Name,
		"content":        rev.Content,
		"createdAt":      rev.CreatedAt,
	}
}

func revisionSummaryPayloads(revisions []store.RevisionSummary) []map[string]any {
	out := make([]map[string]any, 0, len(revisions))
	for _, rev := range revisions {
		out = append(out, map[string]any{
			"id":        rev.ID,
			"name":      rev.Name,
			"createdAt": rev.CreatedAt,
		})
	}
	return out
}

func organizationPayload(org store.Organization) map[string]any {
	return map[string]any{
		"id":        org.ID,
		"name":      org.Name,
		"createdAt": org.CreatedAt,
	}
}

func organizationPayloads(orgs []store.Organization) []map[string]any {
	out := make([]map[string]any, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, organizationPayload(org))
	}
	return out
}

func removalPayload(req store.RemovalRequest) map[string]any {
	return map[string]any{
		"id":             req.ID,
		"requesterName":  req.RequesterName,
		"targetName":     req.TargetName,
		"studentId":      req.StudentID,
		"reason":         req.Reason,
		"organizationId": req.OrganizationID,
		"status":         req.Status,
		"createdAt":      req.CreatedAt,
		"updatedAt":      req.UpdatedAt,
	}
}

func removalPayloads(requests []store.RemovalRequest) []map[string]any {
	out := make([]map[string]any, 0, len(requests))
	for _, req := range requests {
		out = append(out, removalPayload(req))
	}
	return out
}
