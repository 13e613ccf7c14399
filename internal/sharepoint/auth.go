package sharepoint

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// signInPath is the SharePoint endpoint that exchanges an STS binary
// security token for FedAuth/rtFa session cookies.
const signInPath = "/_forms/default.aspx?wa=wsignin1.0"

// samlTokenRequest is the WS-Trust RequestSecurityToken envelope understood
// by the SharePoint Online STS. Placeholders: username, password, endpoint.
const samlTokenRequest = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"
      xmlns:a="http://www.w3.org/2005/08/addressing"
      xmlns:u="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">
  <s:Header>
    <a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/02/trust/RST/Issue</a:Action>
    <a:ReplyTo>
      <a:Address>http://www.w3.org/2005/08/addressing/anonymous</a:Address>
    </a:ReplyTo>
    <a:To s:mustUnderstand="1">https://login.microsoftonline.com/extSTS.srf</a:To>
    <o:Security s:mustUnderstand="1" xmlns:o="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
      <o:UsernameToken>
        <o:Username>%s</o:Username>
        <o:Password>%s</o:Password>
      </o:UsernameToken>
    </o:Security>
  </s:Header>
  <s:Body>
    <t:RequestSecurityToken xmlns:t="http://schemas.xmlsoap.org/ws/2005/02/trust">
      <wsp:AppliesTo xmlns:wsp="http://schemas.xmlsoap.org/ws/2004/09/policy">
        <a:EndpointReference>
          <a:Address>%s</a:Address>
        </a:EndpointReference>
      </wsp:AppliesTo>
      <t:KeyType>http://schemas.xmlsoap.org/ws/2005/05/identity/NoProofKey</t:KeyType>
      <t:RequestType>http://schemas.xmlsoap.org/ws/2005/02/trust/Issue</t:RequestType>
      <t:TokenType>urn:oasis:names:tc:SAML:1.0:assertion</t:TokenType>
    </t:RequestSecurityToken>
  </s:Body>
</s:Envelope>`

// SignIn authenticates the client against SharePoint Online with user
// credentials. It performs the legacy two-step flow: request a binary
// security token from the Microsoft STS, then exchange it at the site's
// sign-in endpoint for FedAuth/rtFa session cookies.
//
// Must be called once before ListFolder or OpenFile. Credential failures
// wrap ErrAuthFailed.
func (c *Client) SignIn(ctx context.Context, username, password string) error {
	c.logger.Info("signing in to SharePoint",
		slog.String("site", c.siteURL),
		slog.String("username", username),
	)

	token, err := c.requestSecurityToken(ctx, username, password)
	if err != nil {
		return err
	}

	if err := c.exchangeToken(ctx, token); err != nil {
		return err
	}

	c.logger.Info("signed in", slog.String("site", c.siteURL))

	return nil
}

// requestSecurityToken posts the SAML envelope to the STS and extracts the
// binary security token from the response.
func (c *Client) requestSecurityToken(ctx context.Context, username, password string) (string, error) {
	envelope := fmt.Sprintf(samlTokenRequest, xmlEscape(username), xmlEscape(password), xmlEscape(c.webRoot))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.stsURL, strings.NewReader(envelope))
	if err != nil {
		return "", fmt.Errorf("sharepoint: creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sharepoint: requesting security token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sharepoint: security token request returned HTTP %d: %w", resp.StatusCode, ErrAuthFailed)
	}

	token, faultText, err := parseTokenResponse(resp.Body)
	if err != nil {
		return "", err
	}

	if token == "" {
		if faultText == "" {
			faultText = "no security token in STS response"
		}

		return "", fmt.Errorf("sharepoint: %s: %w", faultText, ErrAuthFailed)
	}

	return token, nil
}

// exchangeToken posts the security token to the sign-in endpoint at the web
// root. On success the server sets the FedAuth and rtFa session cookies,
// which land in the client's cookie jar.
func (c *Client) exchangeToken(ctx context.Context, token string) error {
	signInURL := c.webRoot + signInPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signInURL, strings.NewReader(token))
	if err != nil {
		return fmt.Errorf("sharepoint: creating sign-in request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sharepoint: exchanging security token: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused; the body is an HTML page.
	_, _ = io.Copy(io.Discard, resp.Body)

	if !c.hasSessionCookie() {
		return fmt.Errorf("sharepoint: sign-in did not set a session cookie (HTTP %d): %w", resp.StatusCode, ErrAuthFailed)
	}

	return nil
}

// hasSessionCookie reports whether the cookie jar holds a FedAuth cookie
// for the web root.
func (c *Client) hasSessionCookie() bool {
	u, err := url.Parse(c.webRoot + "/")
	if err != nil {
		return false
	}

	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == "FedAuth" {
			return true
		}
	}

	return false
}

// parseTokenResponse scans the STS response XML for a BinarySecurityToken
// element. If the STS returned a fault instead, the human-readable fault
// text (psf:text) is returned so the caller can surface it.
func parseTokenResponse(r io.Reader) (token, faultText string, err error) {
	dec := xml.NewDecoder(r)

	var inToken, inFaultText bool

	for {
		tok, decErr := dec.Token()
		if decErr == io.EOF {
			break
		}

		if decErr != nil {
			return "", "", fmt.Errorf("sharepoint: parsing STS response: %w", decErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "BinarySecurityToken":
				inToken = true
			case "text":
				inFaultText = true
			}
		case xml.EndElement:
			inToken = false
			inFaultText = false
		case xml.CharData:
			if inToken {
				token += string(t)
			}

			if inFaultText {
				faultText += strings.TrimSpace(string(t))
			}
		}
	}

	return token, faultText, nil
}

// xmlEscape escapes a string for interpolation into an XML document.
func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))

	return b.String()
}
